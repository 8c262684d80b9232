package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries run inside or
// outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns queries bound to the transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the schema: decimals and dates travel as TEXT and are
// decoded by the repository.
type (
	UserRow struct {
		ID           int64
		HomeCurrency string
		BirthDate    string
	}

	AccountRow struct {
		ID             int64
		UserID         int64
		Name           string
		Type           string
		Currency       string
		InitialBalance string
		CurrentBalance string
		IsLiability    bool
		InterestRate   string
		Compounding    string
		MonthlyFee     string
	}

	CashFlowRow struct {
		ID              int64
		UserID          int64
		Kind            string
		Name            string
		Currency        string
		Amount          string
		Formula         string
		Frequency       string
		StartDate       string
		Active          bool
		EndKind         string
		EndDate         string
		EndAccountID    int64
		EndThreshold    string
		PreTax          bool
		TaxProfileID    int64
		AccountID       int64
		TargetAccountID int64
	}

	ScenarioRow struct {
		ID           int64
		UserID       int64
		Name         string
		StartDate    string
		EndDate      string
		EndCondition string
		Assumptions  string
		IsBaseline   bool
		LastRunAt    sql.NullTime
	}

	ScenarioEventRow struct {
		ID               int64
		ScenarioID       int64
		TriggerType      string
		TriggerDate      string
		TriggerAge       int64
		TriggerCondition string
		Category         string
		Currency         string
		Amount           string
		Formula          string
		AccountID        int64
		Once             bool
		Recurrence       string
		RecurrenceEnd    string
	}

	TaxProfileRow struct {
		ID               int64
		UserID           int64
		Year             int64
		Country          string
		Brackets         string
		SocialRate       string
		SocialMonthlyCap string
		Rebates          string
	}

	ExchangeRateRow struct {
		ID            int64
		BaseCurrency  string
		QuoteCurrency string
		Rate          string
		ObservedAt    time.Time
		Source        string
	}

	AccountProjectionRow struct {
		ScenarioID   int64
		AccountID    int64
		Period       string
		Balance      string
		BalanceHome  string
		Income       string
		Expenses     string
		Interest     string
		TransfersIn  string
		TransfersOut string
		FXRate       string
		FXProvenance string
		EventIDs     string
	}

	NetWorthProjectionRow struct {
		ScenarioID       int64
		Period           string
		TotalAssets      string
		TotalLiabilities string
		NetWorth         string
		ByType           string
		ByCurrency       string
	}
)

const getUser = `
SELECT id, home_currency, birth_date FROM users WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id int64) (UserRow, error) {
	var u UserRow
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(&u.ID, &u.HomeCurrency, &u.BirthDate)
	return u, err
}

const createUser = `
INSERT INTO users (home_currency, birth_date) VALUES (?, ?)
`

func (q *Queries) CreateUser(ctx context.Context, homeCurrency, birthDate string) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUser, homeCurrency, birthDate)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listAccounts = `
SELECT id, user_id, name, type, currency, initial_balance, current_balance,
       is_liability, interest_rate, compounding, monthly_fee
FROM accounts WHERE user_id = ? ORDER BY id
`

func (q *Queries) ListAccounts(ctx context.Context, userID int64) ([]AccountRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []AccountRow
	for rows.Next() {
		var a AccountRow
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Currency,
			&a.InitialBalance, &a.CurrentBalance, &a.IsLiability,
			&a.InterestRate, &a.Compounding, &a.MonthlyFee); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

type CreateAccountParams struct {
	UserID         int64
	Name           string
	Type           string
	Currency       string
	InitialBalance string
	CurrentBalance string
	IsLiability    bool
	InterestRate   string
	Compounding    string
	MonthlyFee     string
}

const createAccount = `
INSERT INTO accounts (user_id, name, type, currency, initial_balance, current_balance,
                      is_liability, interest_rate, compounding, monthly_fee)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateAccount(ctx context.Context, p CreateAccountParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createAccount, p.UserID, p.Name, p.Type, p.Currency,
		p.InitialBalance, p.CurrentBalance, p.IsLiability, p.InterestRate, p.Compounding, p.MonthlyFee)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listCashFlows = `
SELECT id, user_id, kind, name, currency, amount, formula, frequency, start_date, active,
       end_kind, end_date, end_account_id, end_threshold, pre_tax, tax_profile_id,
       account_id, target_account_id
FROM cash_flows WHERE user_id = ? ORDER BY id
`

func (q *Queries) ListCashFlows(ctx context.Context, userID int64) ([]CashFlowRow, error) {
	rows, err := q.db.QueryContext(ctx, listCashFlows, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flows []CashFlowRow
	for rows.Next() {
		var f CashFlowRow
		if err := rows.Scan(&f.ID, &f.UserID, &f.Kind, &f.Name, &f.Currency, &f.Amount,
			&f.Formula, &f.Frequency, &f.StartDate, &f.Active, &f.EndKind, &f.EndDate,
			&f.EndAccountID, &f.EndThreshold, &f.PreTax, &f.TaxProfileID,
			&f.AccountID, &f.TargetAccountID); err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return flows, rows.Err()
}

type CreateCashFlowParams struct {
	UserID          int64
	Kind            string
	Name            string
	Currency        string
	Amount          string
	Formula         string
	Frequency       string
	StartDate       string
	Active          bool
	EndKind         string
	EndDate         string
	EndAccountID    int64
	EndThreshold    string
	PreTax          bool
	TaxProfileID    int64
	AccountID       int64
	TargetAccountID int64
}

const createCashFlow = `
INSERT INTO cash_flows (user_id, kind, name, currency, amount, formula, frequency, start_date,
                        active, end_kind, end_date, end_account_id, end_threshold, pre_tax,
                        tax_profile_id, account_id, target_account_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateCashFlow(ctx context.Context, p CreateCashFlowParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createCashFlow, p.UserID, p.Kind, p.Name, p.Currency,
		p.Amount, p.Formula, p.Frequency, p.StartDate, p.Active, p.EndKind, p.EndDate,
		p.EndAccountID, p.EndThreshold, p.PreTax, p.TaxProfileID, p.AccountID, p.TargetAccountID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type GetScenarioParams struct {
	ID     int64
	UserID int64
}

const getScenario = `
SELECT id, user_id, name, start_date, end_date, end_condition, assumptions, is_baseline, last_run_at
FROM scenarios WHERE id = ? AND user_id = ?
`

func (q *Queries) GetScenario(ctx context.Context, p GetScenarioParams) (ScenarioRow, error) {
	var s ScenarioRow
	err := q.db.QueryRowContext(ctx, getScenario, p.ID, p.UserID).Scan(&s.ID, &s.UserID,
		&s.Name, &s.StartDate, &s.EndDate, &s.EndCondition, &s.Assumptions, &s.IsBaseline, &s.LastRunAt)
	return s, err
}

const listBaselineScenarios = `
SELECT id, user_id, name, start_date, end_date, end_condition, assumptions, is_baseline, last_run_at
FROM scenarios WHERE is_baseline = 1 ORDER BY id
`

func (q *Queries) ListBaselineScenarios(ctx context.Context) ([]ScenarioRow, error) {
	rows, err := q.db.QueryContext(ctx, listBaselineScenarios)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []ScenarioRow
	for rows.Next() {
		var s ScenarioRow
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.StartDate, &s.EndDate,
			&s.EndCondition, &s.Assumptions, &s.IsBaseline, &s.LastRunAt); err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}

type CreateScenarioParams struct {
	UserID       int64
	Name         string
	StartDate    string
	EndDate      string
	EndCondition string
	Assumptions  string
	IsBaseline   bool
}

const createScenario = `
INSERT INTO scenarios (user_id, name, start_date, end_date, end_condition, assumptions, is_baseline)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateScenario(ctx context.Context, p CreateScenarioParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createScenario, p.UserID, p.Name, p.StartDate,
		p.EndDate, p.EndCondition, p.Assumptions, p.IsBaseline)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const stampScenarioRun = `
UPDATE scenarios SET last_run_at = ? WHERE id = ?
`

func (q *Queries) StampScenarioRun(ctx context.Context, id int64, ranAt time.Time) error {
	_, err := q.db.ExecContext(ctx, stampScenarioRun, ranAt, id)
	return err
}

const listScenarioEvents = `
SELECT id, scenario_id, trigger_type, trigger_date, trigger_age, trigger_condition,
       category, currency, amount, formula, account_id, once, recurrence, recurrence_end
FROM scenario_events WHERE scenario_id = ? ORDER BY id
`

func (q *Queries) ListScenarioEvents(ctx context.Context, scenarioID int64) ([]ScenarioEventRow, error) {
	rows, err := q.db.QueryContext(ctx, listScenarioEvents, scenarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ScenarioEventRow
	for rows.Next() {
		var e ScenarioEventRow
		if err := rows.Scan(&e.ID, &e.ScenarioID, &e.TriggerType, &e.TriggerDate,
			&e.TriggerAge, &e.TriggerCondition, &e.Category, &e.Currency, &e.Amount,
			&e.Formula, &e.AccountID, &e.Once, &e.Recurrence, &e.RecurrenceEnd); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type CreateScenarioEventParams struct {
	ScenarioID       int64
	TriggerType      string
	TriggerDate      string
	TriggerAge       int64
	TriggerCondition string
	Category         string
	Currency         string
	Amount           string
	Formula          string
	AccountID        int64
	Once             bool
	Recurrence       string
	RecurrenceEnd    string
}

const createScenarioEvent = `
INSERT INTO scenario_events (scenario_id, trigger_type, trigger_date, trigger_age, trigger_condition,
                             category, currency, amount, formula, account_id, once, recurrence, recurrence_end)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateScenarioEvent(ctx context.Context, p CreateScenarioEventParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createScenarioEvent, p.ScenarioID, p.TriggerType,
		p.TriggerDate, p.TriggerAge, p.TriggerCondition, p.Category, p.Currency, p.Amount,
		p.Formula, p.AccountID, p.Once, p.Recurrence, p.RecurrenceEnd)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listTaxProfiles = `
SELECT id, user_id, year, country, brackets, social_rate, social_monthly_cap, rebates
FROM tax_profiles WHERE user_id = ? ORDER BY id
`

func (q *Queries) ListTaxProfiles(ctx context.Context, userID int64) ([]TaxProfileRow, error) {
	rows, err := q.db.QueryContext(ctx, listTaxProfiles, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []TaxProfileRow
	for rows.Next() {
		var p TaxProfileRow
		if err := rows.Scan(&p.ID, &p.UserID, &p.Year, &p.Country, &p.Brackets,
			&p.SocialRate, &p.SocialMonthlyCap, &p.Rebates); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

type CreateTaxProfileParams struct {
	UserID           int64
	Year             int64
	Country          string
	Brackets         string
	SocialRate       string
	SocialMonthlyCap string
	Rebates          string
}

const createTaxProfile = `
INSERT INTO tax_profiles (user_id, year, country, brackets, social_rate, social_monthly_cap, rebates)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateTaxProfile(ctx context.Context, p CreateTaxProfileParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTaxProfile, p.UserID, p.Year, p.Country,
		p.Brackets, p.SocialRate, p.SocialMonthlyCap, p.Rebates)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listExchangeRates = `
SELECT id, base_currency, quote_currency, rate, observed_at, source FROM exchange_rates ORDER BY id
`

func (q *Queries) ListExchangeRates(ctx context.Context) ([]ExchangeRateRow, error) {
	rows, err := q.db.QueryContext(ctx, listExchangeRates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []ExchangeRateRow
	for rows.Next() {
		var r ExchangeRateRow
		if err := rows.Scan(&r.ID, &r.BaseCurrency, &r.QuoteCurrency, &r.Rate,
			&r.ObservedAt, &r.Source); err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

const createExchangeRate = `
INSERT INTO exchange_rates (base_currency, quote_currency, rate, observed_at, source)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) CreateExchangeRate(ctx context.Context, r ExchangeRateRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, createExchangeRate, r.BaseCurrency, r.QuoteCurrency,
		r.Rate, r.ObservedAt, r.Source)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const deleteAccountProjections = `
DELETE FROM account_projections WHERE scenario_id = ?
`

func (q *Queries) DeleteAccountProjections(ctx context.Context, scenarioID int64) error {
	_, err := q.db.ExecContext(ctx, deleteAccountProjections, scenarioID)
	return err
}

const deleteNetWorthProjections = `
DELETE FROM net_worth_projections WHERE scenario_id = ?
`

func (q *Queries) DeleteNetWorthProjections(ctx context.Context, scenarioID int64) error {
	_, err := q.db.ExecContext(ctx, deleteNetWorthProjections, scenarioID)
	return err
}

const insertAccountProjection = `
INSERT INTO account_projections (scenario_id, account_id, period, balance, balance_home,
                                 income, expenses, interest, transfers_in, transfers_out,
                                 fx_rate, fx_provenance, event_ids)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertAccountProjection(ctx context.Context, r AccountProjectionRow) error {
	_, err := q.db.ExecContext(ctx, insertAccountProjection, r.ScenarioID, r.AccountID,
		r.Period, r.Balance, r.BalanceHome, r.Income, r.Expenses, r.Interest,
		r.TransfersIn, r.TransfersOut, r.FXRate, r.FXProvenance, r.EventIDs)
	return err
}

const insertNetWorthProjection = `
INSERT INTO net_worth_projections (scenario_id, period, total_assets, total_liabilities,
                                   net_worth, by_type, by_currency)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertNetWorthProjection(ctx context.Context, r NetWorthProjectionRow) error {
	_, err := q.db.ExecContext(ctx, insertNetWorthProjection, r.ScenarioID, r.Period,
		r.TotalAssets, r.TotalLiabilities, r.NetWorth, r.ByType, r.ByCurrency)
	return err
}

const getAccountProjections = `
SELECT scenario_id, account_id, period, balance, balance_home, income, expenses, interest,
       transfers_in, transfers_out, fx_rate, fx_provenance, event_ids
FROM account_projections WHERE scenario_id = ? ORDER BY period, account_id
`

func (q *Queries) GetAccountProjections(ctx context.Context, scenarioID int64) ([]AccountProjectionRow, error) {
	rows, err := q.db.QueryContext(ctx, getAccountProjections, scenarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projections []AccountProjectionRow
	for rows.Next() {
		var r AccountProjectionRow
		if err := rows.Scan(&r.ScenarioID, &r.AccountID, &r.Period, &r.Balance,
			&r.BalanceHome, &r.Income, &r.Expenses, &r.Interest, &r.TransfersIn,
			&r.TransfersOut, &r.FXRate, &r.FXProvenance, &r.EventIDs); err != nil {
			return nil, err
		}
		projections = append(projections, r)
	}
	return projections, rows.Err()
}

const getNetWorthProjections = `
SELECT scenario_id, period, total_assets, total_liabilities, net_worth, by_type, by_currency
FROM net_worth_projections WHERE scenario_id = ? ORDER BY period
`

func (q *Queries) GetNetWorthProjections(ctx context.Context, scenarioID int64) ([]NetWorthProjectionRow, error) {
	rows, err := q.db.QueryContext(ctx, getNetWorthProjections, scenarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projections []NetWorthProjectionRow
	for rows.Next() {
		var r NetWorthProjectionRow
		if err := rows.Scan(&r.ScenarioID, &r.Period, &r.TotalAssets, &r.TotalLiabilities,
			&r.NetWorth, &r.ByType, &r.ByCurrency); err != nil {
			return nil, err
		}
		projections = append(projections, r)
	}
	return projections, rows.Err()
}
