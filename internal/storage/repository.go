// Package storage persists the planning domain in SQLite. Decimals and
// dates are stored as TEXT to keep amounts exact; nested structures
// (tax brackets, assumptions, event id lists) are stored as JSON.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"horizon/internal/core"
	"horizon/internal/fx"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}

	birth, err := core.ParseDate(row.BirthDate)
	if err != nil {
		slog.WarnContext(ctx, "Unparseable birth date, ignoring", "user_id", id, "value", row.BirthDate)
	}
	return core.User{
		ID:           row.ID,
		HomeCurrency: core.Currency(row.HomeCurrency),
		BirthDate:    birth,
	}, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (int64, error) {
	id, err := r.queries.CreateUser(ctx, string(u.HomeCurrency), dateStr(u.BirthDate))
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]core.Account, len(rows))
	for i, row := range rows {
		accounts[i] = core.Account{
			ID:             row.ID,
			UserID:         row.UserID,
			Name:           row.Name,
			Type:           core.AccountType(row.Type),
			Currency:       core.Currency(row.Currency),
			InitialBalance: parseDec(ctx, row.InitialBalance, "accounts.initial_balance"),
			CurrentBalance: parseDec(ctx, row.CurrentBalance, "accounts.current_balance"),
			IsLiability:    row.IsLiability,
			InterestRate:   parseDec(ctx, row.InterestRate, "accounts.interest_rate"),
			Compounding:    core.Frequency(row.Compounding),
			MonthlyFee:     parseDec(ctx, row.MonthlyFee, "accounts.monthly_fee"),
		}
	}
	return accounts, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	id, err := r.queries.CreateAccount(ctx, CreateAccountParams{
		UserID:         a.UserID,
		Name:           a.Name,
		Type:           string(a.Type),
		Currency:       string(a.Currency),
		InitialBalance: a.InitialBalance.String(),
		CurrentBalance: a.CurrentBalance.String(),
		IsLiability:    a.IsLiability,
		InterestRate:   a.InterestRate.String(),
		Compounding:    string(a.Compounding),
		MonthlyFee:     a.MonthlyFee.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListCashFlows(ctx context.Context, userID int64) ([]core.CashFlow, error) {
	rows, err := r.queries.ListCashFlows(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cash flows: %w", err)
	}

	flows := make([]core.CashFlow, len(rows))
	for i, row := range rows {
		startDate, err := core.ParseDate(row.StartDate)
		if err != nil {
			slog.WarnContext(ctx, "Unparseable flow start date, ignoring", "flow_id", row.ID, "value", row.StartDate)
		}
		endDate, err := core.ParseDate(row.EndDate)
		if err != nil {
			slog.WarnContext(ctx, "Unparseable flow end date, ignoring", "flow_id", row.ID, "value", row.EndDate)
		}
		flows[i] = core.CashFlow{
			ID:        row.ID,
			UserID:    row.UserID,
			Kind:      core.FlowKind(row.Kind),
			Name:      row.Name,
			Currency:  core.Currency(row.Currency),
			Amount:    parseDec(ctx, row.Amount, "cash_flows.amount"),
			Formula:   row.Formula,
			Frequency: core.Frequency(row.Frequency),
			StartDate: startDate,
			Active:    row.Active,
			End: core.EndCondition{
				Kind:      core.EndConditionKind(row.EndKind),
				Date:      endDate,
				AccountID: row.EndAccountID,
				Threshold: parseDec(ctx, row.EndThreshold, "cash_flows.end_threshold"),
			},
			PreTax:          row.PreTax,
			TaxProfileID:    row.TaxProfileID,
			AccountID:       row.AccountID,
			TargetAccountID: row.TargetAccountID,
		}
	}
	return flows, nil
}

func (r *SQLiteRepository) CreateCashFlow(ctx context.Context, f core.CashFlow) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	id, err := r.queries.CreateCashFlow(ctx, CreateCashFlowParams{
		UserID:          f.UserID,
		Kind:            string(f.Kind),
		Name:            f.Name,
		Currency:        string(f.Currency),
		Amount:          f.Amount.String(),
		Formula:         f.Formula,
		Frequency:       string(f.Frequency),
		StartDate:       dateStr(f.StartDate),
		Active:          f.Active,
		EndKind:         string(f.End.Kind),
		EndDate:         dateStr(f.End.Date),
		EndAccountID:    f.End.AccountID,
		EndThreshold:    f.End.Threshold.String(),
		PreTax:          f.PreTax,
		TaxProfileID:    f.TaxProfileID,
		AccountID:       f.AccountID,
		TargetAccountID: f.TargetAccountID,
	})
	if err != nil {
		return 0, fmt.Errorf("create cash flow: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetScenario(ctx context.Context, id, userID int64) (core.Scenario, error) {
	row, err := r.queries.GetScenario(ctx, GetScenarioParams{ID: id, UserID: userID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Scenario{}, fmt.Errorf("scenario %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Scenario{}, fmt.Errorf("get scenario: %w", err)
	}
	return r.scenarioFromRow(ctx, row), nil
}

func (r *SQLiteRepository) ListBaselineScenarios(ctx context.Context) ([]core.Scenario, error) {
	rows, err := r.queries.ListBaselineScenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("list baseline scenarios: %w", err)
	}
	scenarios := make([]core.Scenario, len(rows))
	for i, row := range rows {
		scenarios[i] = r.scenarioFromRow(ctx, row)
	}
	return scenarios, nil
}

func (r *SQLiteRepository) scenarioFromRow(ctx context.Context, row ScenarioRow) core.Scenario {
	startDate, err := core.ParseDate(row.StartDate)
	if err != nil {
		slog.WarnContext(ctx, "Unparseable scenario start date", "scenario_id", row.ID, "value", row.StartDate)
	}
	endDate, err := core.ParseDate(row.EndDate)
	if err != nil {
		slog.WarnContext(ctx, "Unparseable scenario end date, ignoring", "scenario_id", row.ID, "value", row.EndDate)
	}

	// Unparseable assumptions degrade to none so one bad row cannot make
	// a scenario unrunnable.
	assumptions := core.Assumptions{}
	if row.Assumptions != "" {
		if err := json.Unmarshal([]byte(row.Assumptions), &assumptions); err != nil {
			slog.WarnContext(ctx, "Unparseable scenario assumptions, using defaults",
				"scenario_id", row.ID, "error", err)
			assumptions = core.Assumptions{}
		}
	}

	s := core.Scenario{
		ID:           row.ID,
		UserID:       row.UserID,
		Name:         row.Name,
		StartDate:    startDate,
		EndDate:      endDate,
		EndCondition: row.EndCondition,
		Assumptions:  assumptions,
		IsBaseline:   row.IsBaseline,
	}
	if row.LastRunAt.Valid {
		s.LastRunAt = row.LastRunAt.Time
	}
	return s
}

func (r *SQLiteRepository) CreateScenario(ctx context.Context, s core.Scenario) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	assumptions := []byte("{}")
	if len(s.Assumptions) > 0 {
		var err error
		assumptions, err = json.Marshal(s.Assumptions)
		if err != nil {
			return 0, fmt.Errorf("marshal assumptions: %w", err)
		}
	}
	id, err := r.queries.CreateScenario(ctx, CreateScenarioParams{
		UserID:       s.UserID,
		Name:         s.Name,
		StartDate:    dateStr(s.StartDate),
		EndDate:      dateStr(s.EndDate),
		EndCondition: s.EndCondition,
		Assumptions:  string(assumptions),
		IsBaseline:   s.IsBaseline,
	})
	if err != nil {
		return 0, fmt.Errorf("create scenario: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListScenarioEvents(ctx context.Context, scenarioID int64) ([]core.ScenarioEvent, error) {
	rows, err := r.queries.ListScenarioEvents(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("list scenario events: %w", err)
	}

	events := make([]core.ScenarioEvent, len(rows))
	for i, row := range rows {
		triggerDate, err := core.ParseDate(row.TriggerDate)
		if err != nil {
			slog.WarnContext(ctx, "Unparseable event trigger date", "event_id", row.ID, "value", row.TriggerDate)
		}
		recurrenceEnd, err := core.ParseDate(row.RecurrenceEnd)
		if err != nil {
			slog.WarnContext(ctx, "Unparseable event recurrence end", "event_id", row.ID, "value", row.RecurrenceEnd)
		}
		events[i] = core.ScenarioEvent{
			ID:            row.ID,
			ScenarioID:    row.ScenarioID,
			Trigger:       core.TriggerType(row.TriggerType),
			TriggerDate:   triggerDate,
			TriggerAge:    int(row.TriggerAge),
			Condition:     row.TriggerCondition,
			Category:      row.Category,
			Currency:      core.Currency(row.Currency),
			Amount:        parseDec(ctx, row.Amount, "scenario_events.amount"),
			Formula:       row.Formula,
			AccountID:     row.AccountID,
			Once:          row.Once,
			Recurrence:    core.Frequency(row.Recurrence),
			RecurrenceEnd: recurrenceEnd,
		}
	}
	return events, nil
}

func (r *SQLiteRepository) CreateScenarioEvent(ctx context.Context, e core.ScenarioEvent) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	id, err := r.queries.CreateScenarioEvent(ctx, CreateScenarioEventParams{
		ScenarioID:       e.ScenarioID,
		TriggerType:      string(e.Trigger),
		TriggerDate:      dateStr(e.TriggerDate),
		TriggerAge:       int64(e.TriggerAge),
		TriggerCondition: e.Condition,
		Category:         e.Category,
		Currency:         string(e.Currency),
		Amount:           e.Amount.String(),
		Formula:          e.Formula,
		AccountID:        e.AccountID,
		Once:             e.Once,
		Recurrence:       string(e.Recurrence),
		RecurrenceEnd:    dateStr(e.RecurrenceEnd),
	})
	if err != nil {
		return 0, fmt.Errorf("create scenario event: %w", err)
	}
	return id, nil
}

// taxBracketDoc and taxRebatesDoc are the JSON shapes stored in
// tax_profiles.brackets and tax_profiles.rebates.
type taxBracketDoc struct {
	Lower   decimal.Decimal  `json:"lower"`
	Upper   *decimal.Decimal `json:"upper,omitempty"`
	Rate    decimal.Decimal  `json:"rate"`
	BaseTax decimal.Decimal  `json:"base_tax"`
}

type taxRebatesDoc struct {
	Primary   decimal.Decimal `json:"primary"`
	Secondary decimal.Decimal `json:"secondary"`
	Tertiary  decimal.Decimal `json:"tertiary"`
}

// TaxProfilesByID returns the user's tax profiles keyed by id. Profiles
// whose bracket JSON does not parse degrade to an empty bracket table (no
// tax) with a warning instead of failing the load.
func (r *SQLiteRepository) TaxProfilesByID(ctx context.Context, userID int64) (map[int64]core.TaxProfile, error) {
	rows, err := r.queries.ListTaxProfiles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tax profiles: %w", err)
	}

	profiles := make(map[int64]core.TaxProfile, len(rows))
	for _, row := range rows {
		profile := core.TaxProfile{
			ID:               row.ID,
			UserID:           row.UserID,
			Year:             int(row.Year),
			Country:          row.Country,
			SocialRate:       parseDec(ctx, row.SocialRate, "tax_profiles.social_rate"),
			SocialMonthlyCap: parseDec(ctx, row.SocialMonthlyCap, "tax_profiles.social_monthly_cap"),
		}

		var brackets []taxBracketDoc
		if err := json.Unmarshal([]byte(row.Brackets), &brackets); err != nil {
			slog.WarnContext(ctx, "Unparseable tax brackets, profile applies no tax",
				"tax_profile_id", row.ID, "error", err)
		} else {
			for _, b := range brackets {
				profile.Brackets = append(profile.Brackets, core.TaxBracket{
					Lower: b.Lower, Upper: b.Upper, Rate: b.Rate, BaseTax: b.BaseTax,
				})
			}
		}

		var rebates taxRebatesDoc
		if err := json.Unmarshal([]byte(row.Rebates), &rebates); err != nil {
			slog.WarnContext(ctx, "Unparseable tax rebates, ignoring",
				"tax_profile_id", row.ID, "error", err)
		} else {
			profile.Rebates = core.TaxRebates{
				Primary: rebates.Primary, Secondary: rebates.Secondary, Tertiary: rebates.Tertiary,
			}
		}

		profiles[row.ID] = profile
	}
	return profiles, nil
}

func (r *SQLiteRepository) CreateTaxProfile(ctx context.Context, p core.TaxProfile) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	brackets := make([]taxBracketDoc, len(p.Brackets))
	for i, b := range p.Brackets {
		brackets[i] = taxBracketDoc{Lower: b.Lower, Upper: b.Upper, Rate: b.Rate, BaseTax: b.BaseTax}
	}
	bracketsJSON, err := json.Marshal(brackets)
	if err != nil {
		return 0, fmt.Errorf("marshal brackets: %w", err)
	}
	rebatesJSON, err := json.Marshal(taxRebatesDoc{
		Primary: p.Rebates.Primary, Secondary: p.Rebates.Secondary, Tertiary: p.Rebates.Tertiary,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal rebates: %w", err)
	}

	id, err := r.queries.CreateTaxProfile(ctx, CreateTaxProfileParams{
		UserID:           p.UserID,
		Year:             int64(p.Year),
		Country:          p.Country,
		Brackets:         string(bracketsJSON),
		SocialRate:       p.SocialRate.String(),
		SocialMonthlyCap: p.SocialMonthlyCap.String(),
		Rebates:          string(rebatesJSON),
	})
	if err != nil {
		return 0, fmt.Errorf("create tax profile: %w", err)
	}
	return id, nil
}

// RateTable loads all stored exchange rate observations into an immutable
// snapshot for one run.
func (r *SQLiteRepository) RateTable(ctx context.Context, reference core.Currency) (*fx.Table, error) {
	rows, err := r.queries.ListExchangeRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exchange rates: %w", err)
	}

	observations := make([]fx.Observation, len(rows))
	for i, row := range rows {
		observations[i] = fx.Observation{
			Base:       core.Currency(row.BaseCurrency),
			Quote:      core.Currency(row.QuoteCurrency),
			Rate:       parseDec(ctx, row.Rate, "exchange_rates.rate"),
			ObservedAt: row.ObservedAt,
			Source:     row.Source,
		}
	}
	return fx.NewTable(observations, reference), nil
}

func (r *SQLiteRepository) AddExchangeRate(ctx context.Context, obs fx.Observation) (int64, error) {
	id, err := r.queries.CreateExchangeRate(ctx, ExchangeRateRow{
		BaseCurrency:  string(obs.Base),
		QuoteCurrency: string(obs.Quote),
		Rate:          obs.Rate.String(),
		ObservedAt:    obs.ObservedAt,
		Source:        obs.Source,
	})
	if err != nil {
		return 0, fmt.Errorf("create exchange rate: %w", err)
	}
	return id, nil
}

// ReplaceProjections atomically swaps a scenario's stored projections for
// the given run's output and stamps the run time. Readers never observe a
// half-written run.
func (r *SQLiteRepository) ReplaceProjections(ctx context.Context, scenarioID int64,
	accountRows []core.AccountProjection, netWorthRows []core.NetWorthProjection, ranAt time.Time) error {

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin projection transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteAccountProjections(ctx, scenarioID); err != nil {
		return fmt.Errorf("delete account projections: %w", err)
	}
	if err := q.DeleteNetWorthProjections(ctx, scenarioID); err != nil {
		return fmt.Errorf("delete net worth projections: %w", err)
	}

	for _, row := range accountRows {
		eventIDs := []byte("[]")
		if len(row.EventIDs) > 0 {
			eventIDs, err = json.Marshal(row.EventIDs)
			if err != nil {
				return fmt.Errorf("marshal event ids: %w", err)
			}
		}
		if err := q.InsertAccountProjection(ctx, AccountProjectionRow{
			ScenarioID:   row.ScenarioID,
			AccountID:    row.AccountID,
			Period:       row.Period.Format(),
			Balance:      row.Balance.String(),
			BalanceHome:  row.BalanceHome.String(),
			Income:       row.Income.String(),
			Expenses:     row.Expenses.String(),
			Interest:     row.Interest.String(),
			TransfersIn:  row.TransfersIn.String(),
			TransfersOut: row.TransfersOut.String(),
			FXRate:       row.FXRate.String(),
			FXProvenance: row.FXProvenance,
			EventIDs:     string(eventIDs),
		}); err != nil {
			return fmt.Errorf("insert account projection: %w", err)
		}
	}

	for _, row := range netWorthRows {
		byType, err := json.Marshal(stringDecimalMap(row.ByType))
		if err != nil {
			return fmt.Errorf("marshal by_type: %w", err)
		}
		byCurrency, err := json.Marshal(stringDecimalMap(row.ByCurrency))
		if err != nil {
			return fmt.Errorf("marshal by_currency: %w", err)
		}
		if err := q.InsertNetWorthProjection(ctx, NetWorthProjectionRow{
			ScenarioID:       row.ScenarioID,
			Period:           row.Period.Format(),
			TotalAssets:      row.TotalAssets.String(),
			TotalLiabilities: row.TotalLiabilities.String(),
			NetWorth:         row.NetWorth.String(),
			ByType:           string(byType),
			ByCurrency:       string(byCurrency),
		}); err != nil {
			return fmt.Errorf("insert net worth projection: %w", err)
		}
	}

	if err := q.StampScenarioRun(ctx, scenarioID, ranAt); err != nil {
		return fmt.Errorf("stamp scenario run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit projections: %w", err)
	}

	slog.InfoContext(ctx, "Projections replaced",
		"scenario_id", scenarioID,
		"account_rows", len(accountRows),
		"net_worth_rows", len(netWorthRows))
	return nil
}

func (r *SQLiteRepository) AccountProjections(ctx context.Context, scenarioID int64) ([]core.AccountProjection, error) {
	rows, err := r.queries.GetAccountProjections(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("get account projections: %w", err)
	}

	projections := make([]core.AccountProjection, len(rows))
	for i, row := range rows {
		period, err := core.ParseDate(row.Period)
		if err != nil {
			return nil, fmt.Errorf("parse projection period %q: %w", row.Period, err)
		}
		var eventIDs []int64
		if err := json.Unmarshal([]byte(row.EventIDs), &eventIDs); err != nil {
			slog.WarnContext(ctx, "Unparseable projection event ids, dropping",
				"scenario_id", row.ScenarioID, "period", row.Period, "error", err)
		}
		projections[i] = core.AccountProjection{
			ScenarioID:   row.ScenarioID,
			AccountID:    row.AccountID,
			Period:       period,
			Balance:      parseDec(ctx, row.Balance, "account_projections.balance"),
			BalanceHome:  parseDec(ctx, row.BalanceHome, "account_projections.balance_home"),
			Income:       parseDec(ctx, row.Income, "account_projections.income"),
			Expenses:     parseDec(ctx, row.Expenses, "account_projections.expenses"),
			Interest:     parseDec(ctx, row.Interest, "account_projections.interest"),
			TransfersIn:  parseDec(ctx, row.TransfersIn, "account_projections.transfers_in"),
			TransfersOut: parseDec(ctx, row.TransfersOut, "account_projections.transfers_out"),
			FXRate:       parseDec(ctx, row.FXRate, "account_projections.fx_rate"),
			FXProvenance: row.FXProvenance,
			EventIDs:     eventIDs,
		}
	}
	return projections, nil
}

func (r *SQLiteRepository) NetWorthProjections(ctx context.Context, scenarioID int64) ([]core.NetWorthProjection, error) {
	rows, err := r.queries.GetNetWorthProjections(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("get net worth projections: %w", err)
	}

	projections := make([]core.NetWorthProjection, len(rows))
	for i, row := range rows {
		period, err := core.ParseDate(row.Period)
		if err != nil {
			return nil, fmt.Errorf("parse projection period %q: %w", row.Period, err)
		}
		projections[i] = core.NetWorthProjection{
			ScenarioID:       row.ScenarioID,
			Period:           period,
			TotalAssets:      parseDec(ctx, row.TotalAssets, "net_worth_projections.total_assets"),
			TotalLiabilities: parseDec(ctx, row.TotalLiabilities, "net_worth_projections.total_liabilities"),
			NetWorth:         parseDec(ctx, row.NetWorth, "net_worth_projections.net_worth"),
			ByType:           parseDecMap(ctx, row.ByType, "net_worth_projections.by_type"),
			ByCurrency:       parseDecMap(ctx, row.ByCurrency, "net_worth_projections.by_currency"),
		}
	}
	return projections, nil
}

func dateStr(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format()
}

// parseDec decodes a stored decimal. Corrupt values degrade to zero with a
// warning; a run on degraded data is still more useful than no run.
func parseDec(ctx context.Context, s, column string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		slog.WarnContext(ctx, "Unparseable stored decimal, using zero", "column", column, "value", s)
		return decimal.Zero
	}
	return d
}

func parseDecMap(ctx context.Context, s, column string) map[string]decimal.Decimal {
	m := map[string]decimal.Decimal{}
	if s == "" {
		return m
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		slog.WarnContext(ctx, "Unparseable stored decimal map, using empty", "column", column, "error", err)
		return map[string]decimal.Decimal{}
	}
	return m
}

func stringDecimalMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	if m == nil {
		return map[string]decimal.Decimal{}
	}
	return m
}
