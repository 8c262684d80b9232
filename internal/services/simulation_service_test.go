package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"horizon/internal/core"
	"horizon/internal/storage"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	service    *SimulationService
	userID     int64
	accountID  int64
	scenarioID int64
}

// newFixture seeds a user with one checking account, a monthly salary and
// a two-year scenario.
func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "horizon.db"))
	require.NoError(t, err)

	userID, err := repo.CreateUser(ctx, core.User{HomeCurrency: "USD", BirthDate: core.NewDate(1990, 6, 15)})
	require.NoError(t, err)

	accountID, err := repo.CreateAccount(ctx, core.Account{
		UserID: userID, Name: "checking", Type: core.AccountBank, Currency: "USD",
	})
	require.NoError(t, err)

	_, err = repo.CreateCashFlow(ctx, core.CashFlow{
		UserID: userID, Kind: core.FlowIncome, Name: "salary", Currency: "USD",
		Amount: dec("5000"), Frequency: core.Monthly, Active: true, AccountID: accountID,
	})
	require.NoError(t, err)

	scenarioID, err := repo.CreateScenario(ctx, core.Scenario{
		UserID:    userID,
		Name:      "two years",
		StartDate: core.NewDate(2026, 1, 1),
		EndDate:   core.NewDate(2027, 12, 31),
	})
	require.NoError(t, err)

	service := NewSimulationService(repo, nil, 0, "USD")
	t.Cleanup(func() { service.Close() })

	return fixture{service: service, userID: userID, accountID: accountID, scenarioID: scenarioID}
}

func TestRunSimulation_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.RunSimulation(ctx, f.userID, f.scenarioID, true)
	require.NoError(t, err)
	require.Equal(t, 24, result.PeriodsComputed)
	require.True(t, result.FinalNetWorth.Equal(dec("120000")), "final net worth = %s", result.FinalNetWorth)
	require.Equal(t, core.Currency("USD"), result.HomeCurrency)

	rows, err := f.service.GetProjections(ctx, ProjectionQuery{UserID: f.userID, ScenarioID: f.scenarioID})
	require.NoError(t, err)
	require.Len(t, rows, 24)
	require.True(t, rows[0].Balance.Equal(dec("5000")))
	require.True(t, rows[23].Balance.Equal(dec("120000")))

	networth, err := f.service.GetNetWorth(ctx, ProjectionQuery{UserID: f.userID, ScenarioID: f.scenarioID})
	require.NoError(t, err)
	require.Len(t, networth, 24)
	require.True(t, networth[23].NetWorth.Equal(dec("120000")))
}

func TestRunSimulation_RerunReplacesProjections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.RunSimulation(ctx, f.userID, f.scenarioID, true)
	require.NoError(t, err)
	_, err = f.service.RunSimulation(ctx, f.userID, f.scenarioID, true)
	require.NoError(t, err)

	rows, err := f.service.GetProjections(ctx, ProjectionQuery{UserID: f.userID, ScenarioID: f.scenarioID})
	require.NoError(t, err)
	require.Len(t, rows, 24, "re-run must replace rows, not append")
}

func TestRunSimulation_UnknownScenario(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RunSimulation(context.Background(), f.userID, 999, true)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRunSimulation_ForeignScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherUser, err := f.service.storage.CreateUser(ctx, core.User{HomeCurrency: "USD"})
	require.NoError(t, err)

	_, err = f.service.RunSimulation(ctx, otherUser, f.scenarioID, true)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetProjections_RangeAndGranularity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.RunSimulation(ctx, f.userID, f.scenarioID, true)
	require.NoError(t, err)

	rows, err := f.service.GetProjections(ctx, ProjectionQuery{
		UserID:     f.userID,
		ScenarioID: f.scenarioID,
		From:       core.NewDate(2026, 6, 1),
		To:         core.NewDate(2026, 9, 30),
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, core.NewDate(2026, 6, 1), rows[0].Period)

	quarterly, err := f.service.GetProjections(ctx, ProjectionQuery{
		UserID:      f.userID,
		ScenarioID:  f.scenarioID,
		Granularity: "quarterly",
	})
	require.NoError(t, err)
	require.Len(t, quarterly, 8)
	require.Equal(t, core.NewDate(2026, 1, 1), quarterly[0].Period)
	require.Equal(t, core.NewDate(2026, 4, 1), quarterly[1].Period)

	// Finer than monthly is served monthly.
	weekly, err := f.service.GetNetWorth(ctx, ProjectionQuery{
		UserID:      f.userID,
		ScenarioID:  f.scenarioID,
		Granularity: "weekly",
	})
	require.NoError(t, err)
	require.Len(t, weekly, 24)
}

func TestGetProjections_AccountFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	savingsID, err := f.service.storage.CreateAccount(ctx, core.Account{
		UserID: f.userID, Name: "savings", Type: core.AccountBank, Currency: "USD",
		InitialBalance: dec("1000"), CurrentBalance: dec("1000"),
	})
	require.NoError(t, err)

	_, err = f.service.RunSimulation(ctx, f.userID, f.scenarioID, true)
	require.NoError(t, err)

	rows, err := f.service.GetProjections(ctx, ProjectionQuery{
		UserID:     f.userID,
		ScenarioID: f.scenarioID,
		AccountID:  savingsID,
	})
	require.NoError(t, err)
	require.Len(t, rows, 24)
	for _, row := range rows {
		require.Equal(t, savingsID, row.AccountID)
		require.True(t, row.Balance.Equal(dec("1000")))
	}

	all, err := f.service.GetProjections(ctx, ProjectionQuery{
		UserID:     f.userID,
		ScenarioID: f.scenarioID,
	})
	require.NoError(t, err)
	require.Len(t, all, 48)
}
