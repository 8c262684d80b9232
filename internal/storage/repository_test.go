package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"horizon/internal/core"
	"horizon/internal/fx"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "horizon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedUser(t *testing.T, repo *SQLiteRepository) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), core.User{
		HomeCurrency: "USD",
		BirthDate:    core.NewDate(1990, 6, 15),
	})
	require.NoError(t, err)
	return id
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := seedUser(t, repo)
	user, err := repo.GetUser(ctx, id)
	require.NoError(t, err)
	require.Equal(t, core.Currency("USD"), user.HomeCurrency)
	require.Equal(t, core.NewDate(1990, 6, 15), user.BirthDate)

	_, err = repo.GetUser(ctx, 999)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestAccountRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := seedUser(t, repo)

	_, err := repo.CreateAccount(ctx, core.Account{
		UserID:         userID,
		Name:           "brokerage",
		Type:           core.AccountInvestment,
		Currency:       "EUR",
		InitialBalance: dec("1000.50"),
		CurrentBalance: dec("2500.75"),
		InterestRate:   dec("0.07"),
		Compounding:    core.Quarterly,
		MonthlyFee:     dec("1.25"),
	})
	require.NoError(t, err)

	accounts, err := repo.ListAccounts(ctx, userID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	acc := accounts[0]
	require.Equal(t, "brokerage", acc.Name)
	require.True(t, acc.InitialBalance.Equal(dec("1000.50")))
	require.True(t, acc.CurrentBalance.Equal(dec("2500.75")))
	require.True(t, acc.InterestRate.Equal(dec("0.07")))
	require.Equal(t, core.Quarterly, acc.Compounding)
	require.False(t, acc.IsLiability)
}

func TestCreateAccount_Invalid(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateAccount(context.Background(), core.Account{Name: "", Currency: "USD", Type: core.AccountBank})
	require.ErrorIs(t, err, core.ErrEmptyName)
}

func TestCashFlowRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := seedUser(t, repo)
	accountID, err := repo.CreateAccount(ctx, core.Account{
		UserID: userID, Name: "checking", Type: core.AccountBank, Currency: "USD",
	})
	require.NoError(t, err)

	_, err = repo.CreateCashFlow(ctx, core.CashFlow{
		UserID:    userID,
		Kind:      core.FlowIncome,
		Name:      "salary",
		Currency:  "USD",
		Amount:    dec("5000"),
		Frequency: core.Biweekly,
		StartDate: core.NewDate(2026, 3, 1),
		Active:    true,
		End: core.EndCondition{
			Kind: core.EndUntilDate,
			Date: core.NewDate(2030, 1, 1),
		},
		PreTax:       true,
		TaxProfileID: 3,
		AccountID:    accountID,
	})
	require.NoError(t, err)

	flows, err := repo.ListCashFlows(ctx, userID)
	require.NoError(t, err)
	require.Len(t, flows, 1)

	flow := flows[0]
	require.Equal(t, core.FlowIncome, flow.Kind)
	require.Equal(t, core.Biweekly, flow.Frequency)
	require.True(t, flow.Amount.Equal(dec("5000")))
	require.Equal(t, core.NewDate(2026, 3, 1), flow.StartDate)
	require.Equal(t, core.EndUntilDate, flow.End.Kind)
	require.Equal(t, core.NewDate(2030, 1, 1), flow.End.Date)
	require.True(t, flow.PreTax)
	require.Equal(t, int64(3), flow.TaxProfileID)
}

func TestScenarioRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := seedUser(t, repo)

	scenarioID, err := repo.CreateScenario(ctx, core.Scenario{
		UserID:       userID,
		Name:         "early retirement",
		StartDate:    core.NewDate(2026, 1, 1),
		EndCondition: "networth >= 1000000",
		Assumptions:  core.Assumptions{"years": dec("30"), "inflation": dec("0.02")},
		IsBaseline:   true,
	})
	require.NoError(t, err)

	scenario, err := repo.GetScenario(ctx, scenarioID, userID)
	require.NoError(t, err)
	require.Equal(t, "early retirement", scenario.Name)
	require.Equal(t, "networth >= 1000000", scenario.EndCondition)
	require.True(t, scenario.Assumptions["years"].Equal(dec("30")))
	require.True(t, scenario.IsBaseline)
	require.True(t, scenario.LastRunAt.IsZero())

	// Ownership check: another user cannot read the scenario.
	_, err = repo.GetScenario(ctx, scenarioID, userID+1)
	require.ErrorIs(t, err, core.ErrNotFound)

	baselines, err := repo.ListBaselineScenarios(ctx)
	require.NoError(t, err)
	require.Len(t, baselines, 1)
}

func TestScenarioEventRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := seedUser(t, repo)
	scenarioID, err := repo.CreateScenario(ctx, core.Scenario{
		UserID: userID, Name: "base", StartDate: core.NewDate(2026, 1, 1),
	})
	require.NoError(t, err)

	_, err = repo.CreateScenarioEvent(ctx, core.ScenarioEvent{
		ScenarioID:  scenarioID,
		Trigger:     core.TriggerAge,
		TriggerAge:  65,
		Category:    "retirement",
		Currency:    "USD",
		Amount:      dec("-10000"),
		AccountID:   1,
		Once:        false,
		Recurrence:  core.Monthly,
	})
	require.NoError(t, err)

	events, err := repo.ListScenarioEvents(ctx, scenarioID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, core.TriggerAge, events[0].Trigger)
	require.Equal(t, 65, events[0].TriggerAge)
	require.True(t, events[0].Amount.Equal(dec("-10000")))
	require.Equal(t, core.Monthly, events[0].Recurrence)
}

func TestTaxProfileRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := seedUser(t, repo)

	upper := dec("50000")
	profileID, err := repo.CreateTaxProfile(ctx, core.TaxProfile{
		UserID:  userID,
		Year:    2026,
		Country: "ZA",
		Brackets: []core.TaxBracket{
			{Lower: dec("0"), Upper: &upper, Rate: dec("0.18")},
			{Lower: dec("50000"), Rate: dec("0.26"), BaseTax: dec("9000")},
		},
		SocialRate:       dec("0.01"),
		SocialMonthlyCap: dec("177.12"),
		Rebates:          core.TaxRebates{Primary: dec("17235")},
	})
	require.NoError(t, err)

	profiles, err := repo.TaxProfilesByID(ctx, userID)
	require.NoError(t, err)
	profile, ok := profiles[profileID]
	require.True(t, ok)
	require.Len(t, profile.Brackets, 2)
	require.True(t, profile.Brackets[0].Rate.Equal(dec("0.18")))
	require.NotNil(t, profile.Brackets[0].Upper)
	require.True(t, profile.Brackets[0].Upper.Equal(dec("50000")))
	require.Nil(t, profile.Brackets[1].Upper)
	require.True(t, profile.Rebates.Primary.Equal(dec("17235")))
	require.True(t, profile.SocialMonthlyCap.Equal(dec("177.12")))
}

func TestTaxProfile_CorruptBracketsDegradeToNoTax(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := seedUser(t, repo)

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO tax_profiles (user_id, brackets, rebates) VALUES (?, ?, ?)`,
		userID, "{not json", "{}")
	require.NoError(t, err)

	profiles, err := repo.TaxProfilesByID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	for _, p := range profiles {
		require.Empty(t, p.Brackets)
	}
}

func TestRateTable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.AddExchangeRate(ctx, fx.Observation{Base: "EUR", Quote: "USD", Rate: dec("1.05"), ObservedAt: old, Source: "ecb"})
	require.NoError(t, err)
	_, err = repo.AddExchangeRate(ctx, fx.Observation{Base: "EUR", Quote: "USD", Rate: dec("1.10"), ObservedAt: recent, Source: "ecb"})
	require.NoError(t, err)

	table, err := repo.RateTable(ctx, "USD")
	require.NoError(t, err)

	res := table.Resolve("EUR", "USD", recent)
	require.Equal(t, fx.ProvenanceDirect, res.Provenance)
	require.True(t, res.Rate.Equal(dec("1.10")), "rate = %s", res.Rate)
}

func TestReplaceProjections_SwapsAtomically(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := seedUser(t, repo)
	scenarioID, err := repo.CreateScenario(ctx, core.Scenario{
		UserID: userID, Name: "base", StartDate: core.NewDate(2026, 1, 1),
	})
	require.NoError(t, err)

	makeRows := func(balance string, periods int) ([]core.AccountProjection, []core.NetWorthProjection) {
		var accRows []core.AccountProjection
		var nwRows []core.NetWorthProjection
		for i := 0; i < periods; i++ {
			period := core.NewDate(2026, 1, 1).AddMonths(i)
			accRows = append(accRows, core.AccountProjection{
				ScenarioID: scenarioID, AccountID: 1, Period: period,
				Balance: dec(balance), BalanceHome: dec(balance),
				FXRate: dec("1"), FXProvenance: "direct", EventIDs: []int64{7},
			})
			nwRows = append(nwRows, core.NetWorthProjection{
				ScenarioID: scenarioID, Period: period,
				TotalAssets: dec(balance), TotalLiabilities: dec("0"), NetWorth: dec(balance),
				ByType:     map[string]decimal.Decimal{"bank": dec(balance)},
				ByCurrency: map[string]decimal.Decimal{"USD": dec(balance)},
			})
		}
		return accRows, nwRows
	}

	firstRan := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	accRows, nwRows := makeRows("100", 3)
	require.NoError(t, repo.ReplaceProjections(ctx, scenarioID, accRows, nwRows, firstRan))

	// A shorter re-run fully replaces the previous rows.
	secondRan := firstRan.Add(time.Hour)
	accRows, nwRows = makeRows("200", 2)
	require.NoError(t, repo.ReplaceProjections(ctx, scenarioID, accRows, nwRows, secondRan))

	stored, err := repo.AccountProjections(ctx, scenarioID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.True(t, stored[0].Balance.Equal(dec("200")))
	require.Equal(t, []int64{7}, stored[0].EventIDs)

	nwStored, err := repo.NetWorthProjections(ctx, scenarioID)
	require.NoError(t, err)
	require.Len(t, nwStored, 2)
	require.True(t, nwStored[0].ByType["bank"].Equal(dec("200")))

	scenario, err := repo.GetScenario(ctx, scenarioID, userID)
	require.NoError(t, err)
	require.False(t, scenario.LastRunAt.IsZero())
}
