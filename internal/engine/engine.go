// Package engine computes forward-looking, period-by-period projections of
// account balances and net worth for a scenario.
//
// A run is strictly sequential over monthly periods: every period's
// balances feed the next period's interest accrual, end-condition checks
// and tax aggregation, so there is no checkpointed resume. A re-run is
// always a full recompute from the scenario start.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"horizon/internal/core"
	"horizon/internal/fx"
	"horizon/internal/schedule"
	"horizon/internal/tax"
)

var one = decimal.NewFromInt(1)

// Output is the full product of one run, held in memory until the caller
// commits it atomically.
type Output struct {
	AccountRows  []core.AccountProjection
	NetWorthRows []core.NetWorthProjection
	Result       core.RunResult
}

// Engine projects one scenario. Instances are single-use per run but a
// run touches no shared state, so distinct scenarios can run concurrently.
type Engine struct {
	snap    Snapshot
	sched   *schedule.Scheduler
	endCond *schedule.Condition
	nowFn   func() time.Time
}

// New validates the snapshot and prepares an engine for it. A flow or
// event referencing an account outside the snapshot fails here, before
// any projection work happens.
func New(snap Snapshot) (*Engine, error) {
	snap.normalize()
	if err := snap.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		snap:  snap,
		sched: schedule.New(snap.Scenario, snap.User, snap.Flows, snap.Events),
		nowFn: time.Now,
	}

	if snap.Scenario.EndCondition != "" {
		cond, err := schedule.ParseCondition(snap.Scenario.EndCondition)
		switch {
		case err != nil:
			// Malformed scenario data degrades to "no end condition"
			// rather than blocking the run.
			slog.Warn("Malformed scenario end condition, ignoring",
				"scenario_id", snap.Scenario.ID, "error", err)
		case cond.Subject == schedule.SubjectBalance:
			// The scenario-level path carries no account reference, so a
			// balance subject could never be satisfied.
			slog.Warn("Scenario end conditions support only networth, ignoring",
				"scenario_id", snap.Scenario.ID, "condition", snap.Scenario.EndCondition)
		default:
			e.endCond = &cond
		}
	}

	return e, nil
}

// runState is the mutable accumulator threaded through the period loop.
// It is created per run; nothing survives across runs.
type runState struct {
	balances   map[int64]decimal.Decimal
	initial    map[int64]decimal.Decimal
	firedOnce  map[int64]bool
	netWorth   decimal.Decimal
	warnings   []string
	warned     map[string]bool
	skipped    []int64
	skippedSet map[int64]bool
}

func (st *runState) warn(msg string) {
	if st.warned[msg] {
		return
	}
	st.warned[msg] = true
	st.warnings = append(st.warnings, msg)
}

func (st *runState) skip(flowID int64) {
	if st.skippedSet[flowID] {
		return
	}
	st.skippedSet[flowID] = true
	st.skipped = append(st.skipped, flowID)
}

// prior snapshots the state end-condition and trigger evaluation sees:
// the previous period's closing balances, never this period's.
func (st *runState) prior() schedule.PriorState {
	balances := make(map[int64]decimal.Decimal, len(st.balances))
	for id, b := range st.balances {
		balances[id] = b
	}
	return schedule.PriorState{
		Balances:        balances,
		InitialBalances: st.initial,
		NetWorth:        st.netWorth,
	}
}

// periodTotals accumulates one account's movements within one period.
type periodTotals struct {
	income   decimal.Decimal
	expenses decimal.Decimal
	interest decimal.Decimal
	in       decimal.Decimal
	out      decimal.Decimal
	events   []int64
}

// Run executes the projection. When seedFromInitial is true balances seed
// from each account's initial balance (a recompute from the very start);
// otherwise from the current stored balance.
func (e *Engine) Run(ctx context.Context, seedFromInitial bool) (*Output, error) {
	st := &runState{
		balances:   map[int64]decimal.Decimal{},
		initial:    map[int64]decimal.Decimal{},
		firedOnce:  map[int64]bool{},
		warned:     map[string]bool{},
		skippedSet: map[int64]bool{},
	}
	for _, acc := range e.snap.Accounts {
		seed := acc.CurrentBalance
		if seedFromInitial {
			seed = acc.InitialBalance
		}
		st.balances[acc.ID] = acc.Currency.RoundAmount(seed)
		st.initial[acc.ID] = acc.Currency.RoundAmount(seed)
	}

	start := e.snap.Scenario.StartDate.MonthStart()
	maxPeriods := e.periodCount(start)
	out := &Output{}

	computed := 0
	for i := 0; i < maxPeriods; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run aborted in period %d: %w", i+1, core.ErrRunTimeout)
		}

		period := start.AddMonths(i)
		prior := st.prior()
		totals := map[int64]*periodTotals{}

		flows := e.sched.FiringFlows(ctx, period, prior)
		e.applyIncomes(ctx, flows, period, st, totals)
		e.applyOutflows(ctx, flows, period, st, totals)

		events := e.sched.FiringEvents(ctx, period, prior, st.firedOnce)
		e.applyEvents(ctx, events, period, st, totals)

		e.accrueInterestAndFees(i, st, totals)

		e.emitPeriod(period, st, totals, out)
		computed = i + 1

		if e.endCond != nil {
			closing := schedule.PriorState{Balances: st.balances, InitialBalances: st.initial, NetWorth: st.netWorth}
			if e.endCond.Eval(closing, 0) {
				break
			}
		}
	}

	out.Result = core.RunResult{
		ScenarioID:      e.snap.Scenario.ID,
		PeriodsComputed: computed,
		FinalNetWorth:   st.netWorth,
		HomeCurrency:    e.snap.User.HomeCurrency,
		Warnings:        st.warnings,
		SkippedFlows:    st.skipped,
		RanAt:           e.nowFn().UTC(),
	}
	return out, nil
}

// periodCount is the loop bound: through the scenario end date when one is
// set, the assumption-driven horizon otherwise. A textual end condition can
// stop the loop earlier.
func (e *Engine) periodCount(start core.Date) int {
	end := e.snap.Scenario.EndDate
	if end.IsEmpty() {
		return e.snap.Scenario.Horizon()
	}
	n := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
	if n < 1 {
		n = 1
	}
	return n
}

// periodAmount is what a firing flow moves this period: the full amount
// for once-off flows, the monthly equivalent for recurring ones.
func (e *Engine) periodAmount(ctx context.Context, flow core.CashFlow, st *runState) (decimal.Decimal, bool) {
	amount := flow.EffectiveAmount()
	if flow.Frequency == core.Once {
		return amount, true
	}
	monthly, err := core.ToMonthly(amount, flow.Frequency)
	if err != nil {
		slog.WarnContext(ctx, "Skipping flow with invalid frequency",
			"flow_id", flow.ID, "frequency", flow.Frequency)
		st.skip(flow.ID)
		return decimal.Zero, false
	}
	return monthly, true
}

// applyIncomes credits income flows. Pre-tax flows sharing a tax profile
// are taxed together: recurring amounts are summed in home currency and
// annualized, once-off amounts join the annual figure at their actual
// size, and the computed deduction rates are applied back per source.
// Taxing sources independently would grant the low brackets once per
// source and overstate net income.
func (e *Engine) applyIncomes(ctx context.Context, flows []core.CashFlow, period core.Date, st *runState, totals map[int64]*periodTotals) {
	type posting struct {
		flow  core.CashFlow
		gross decimal.Decimal
	}

	var untaxed []posting
	grouped := map[int64][]posting{}
	var groupIDs []int64

	for _, flow := range flows {
		if flow.Kind != core.FlowIncome {
			continue
		}
		if flow.AccountID == 0 {
			st.warn(fmt.Sprintf("flow %d has no account, skipped", flow.ID))
			st.skip(flow.ID)
			continue
		}
		gross, ok := e.periodAmount(ctx, flow, st)
		if !ok || gross.IsZero() {
			continue
		}
		p := posting{flow: flow, gross: gross}
		_, hasProfile := e.snap.TaxProfiles[flow.TaxProfileID]
		if flow.PreTax && hasProfile {
			if _, seen := grouped[flow.TaxProfileID]; !seen {
				groupIDs = append(groupIDs, flow.TaxProfileID)
			}
			grouped[flow.TaxProfileID] = append(grouped[flow.TaxProfileID], p)
		} else {
			untaxed = append(untaxed, p)
		}
	}

	for _, p := range untaxed {
		e.credit(p.flow, p.gross, period, st, totals)
	}

	sort.Slice(groupIDs, func(i, j int) bool { return groupIDs[i] < groupIDs[j] })
	home := e.snap.User.HomeCurrency

	for _, profileID := range groupIDs {
		postings := grouped[profileID]
		profile := e.snap.TaxProfiles[profileID]

		recurringHome := decimal.Zero
		onceHome := decimal.Zero
		for _, p := range postings {
			converted, res := e.snap.Rates.Convert(p.gross, p.flow.Currency, home, period.Time)
			e.warnIfUnresolved(res, p.flow.Currency, home, st)
			if p.flow.Frequency == core.Once {
				onceHome = onceHome.Add(converted)
			} else {
				recurringHome = recurringHome.Add(converted)
			}
		}

		// Recurring income is annualized and its deduction spread monthly.
		// A once-off amount enters the annual figure once, so it is taxed
		// at the recurring income's marginal position, and its whole tax
		// is taken in the single period it arrives.
		annualRecurring := core.Annualize(recurringHome)
		recurRes := tax.Compute(annualRecurring, profile)

		recurRate := decimal.Zero
		if recurringHome.IsPositive() {
			recurRate = clampRate(recurRes.MonthlyDeduction().Div(recurringHome))
		}
		onceRate := decimal.Zero
		if onceHome.IsPositive() {
			combined := tax.Compute(annualRecurring.Add(onceHome), profile)
			onceTax := combined.AnnualTax.Sub(recurRes.AnnualTax)
			if onceTax.IsNegative() {
				onceTax = decimal.Zero
			}
			onceRate = clampRate(onceTax.Div(onceHome))
		}

		// Effective rates applied per source so each account is still
		// credited in its own currency.
		for _, p := range postings {
			rate := recurRate
			if p.flow.Frequency == core.Once {
				rate = onceRate
			}
			e.credit(p.flow, p.gross.Mul(one.Sub(rate)), period, st, totals)
		}
	}
}

// applyOutflows debits expense and contribution flows from their source
// account and credits any target account (transfer semantics).
func (e *Engine) applyOutflows(ctx context.Context, flows []core.CashFlow, period core.Date, st *runState, totals map[int64]*periodTotals) {
	for _, flow := range flows {
		if flow.Kind != core.FlowExpense && flow.Kind != core.FlowContribution {
			continue
		}
		if flow.AccountID == 0 {
			st.warn(fmt.Sprintf("flow %d has no account, skipped", flow.ID))
			st.skip(flow.ID)
			continue
		}
		amount, ok := e.periodAmount(ctx, flow, st)
		if !ok || amount.IsZero() {
			continue
		}

		source := e.snap.account(flow.AccountID)
		srcAmount, res := e.snap.Rates.Convert(amount, flow.Currency, source.Currency, period.Time)
		e.warnIfUnresolved(res, flow.Currency, source.Currency, st)
		srcAmount = source.Currency.RoundAmount(srcAmount)
		e.debitAccount(source, srcAmount, st)

		tot := e.totalsFor(source.ID, totals)
		if flow.TargetAccountID != 0 {
			tot.out = tot.out.Add(srcAmount)

			target := e.snap.account(flow.TargetAccountID)
			dstAmount, res := e.snap.Rates.Convert(amount, flow.Currency, target.Currency, period.Time)
			e.warnIfUnresolved(res, flow.Currency, target.Currency, st)
			dstAmount = target.Currency.RoundAmount(dstAmount)
			e.creditAccount(target, dstAmount, st)
			dstTot := e.totalsFor(target.ID, totals)
			dstTot.in = dstTot.in.Add(dstAmount)
		} else {
			tot.expenses = tot.expenses.Add(srcAmount)
		}
	}
}

// applyEvents posts each firing event's signed amount to its affected
// account. Events with no account cannot be applied and are warned about.
func (e *Engine) applyEvents(ctx context.Context, events []core.ScenarioEvent, period core.Date, st *runState, totals map[int64]*periodTotals) {
	for _, ev := range events {
		if ev.AccountID == 0 {
			st.warn(fmt.Sprintf("event %d has no affected account, skipped", ev.ID))
			continue
		}
		amount := ev.EffectiveAmount()
		if amount.IsZero() {
			continue
		}

		account := e.snap.account(ev.AccountID)
		converted, res := e.snap.Rates.Convert(amount, ev.Currency, account.Currency, period.Time)
		e.warnIfUnresolved(res, ev.Currency, account.Currency, st)
		converted = account.Currency.RoundAmount(converted)

		tot := e.totalsFor(account.ID, totals)
		if converted.IsPositive() {
			e.creditAccount(account, converted, st)
			tot.income = tot.income.Add(converted)
		} else {
			e.debitAccount(account, converted.Neg(), st)
			tot.expenses = tot.expenses.Add(converted.Neg())
		}
		tot.events = append(tot.events, ev.ID)
	}
}

// accrueInterestAndFees applies interest per each account's compounding
// frequency and deducts monthly fees. Interest on a liability accrues
// against the outstanding principal; on an asset it compounds the balance.
func (e *Engine) accrueInterestAndFees(periodIndex int, st *runState, totals map[int64]*periodTotals) {
	for i := range e.snap.Accounts {
		acc := &e.snap.Accounts[i]
		tot := e.totalsFor(acc.ID, totals)

		if !acc.InterestRate.IsZero() {
			if rate, due := periodInterestRate(acc.CompoundingOrDefault(), acc.InterestRate, periodIndex); due {
				interest := acc.Currency.RoundAmount(st.balances[acc.ID].Mul(rate))
				if !interest.IsZero() {
					st.balances[acc.ID] = st.balances[acc.ID].Add(interest)
					tot.interest = tot.interest.Add(interest)
				}
			}
		}

		if acc.MonthlyFee.IsPositive() {
			fee := acc.Currency.RoundAmount(acc.MonthlyFee)
			e.debitAccount(acc, fee, st)
			tot.expenses = tot.expenses.Add(fee)
		}
	}
}

// periodInterestRate returns the rate to apply in this period and whether
// interest posts at all. Monthly compounding posts every period; quarterly
// and annual compounding post at the end of each third and twelfth period.
func periodInterestRate(compounding core.Frequency, annualRate decimal.Decimal, periodIndex int) (decimal.Decimal, bool) {
	switch compounding {
	case core.Quarterly:
		if (periodIndex+1)%3 != 0 {
			return decimal.Zero, false
		}
		return annualRate.Div(decimal.NewFromInt(4)), true
	case core.Annually:
		if (periodIndex+1)%12 != 0 {
			return decimal.Zero, false
		}
		return annualRate, true
	default:
		return annualRate.Div(decimal.NewFromInt(12)), true
	}
}

// emitPeriod converts every account's closing balance to home currency and
// appends one account row per account plus the period's net-worth row.
// The net-worth totals are built from the same rounded home balances as
// the account rows, so the two always reconcile.
func (e *Engine) emitPeriod(period core.Date, st *runState, totals map[int64]*periodTotals, out *Output) {
	home := e.snap.User.HomeCurrency
	assets := decimal.Zero
	liabilities := decimal.Zero
	byType := map[string]decimal.Decimal{}
	byCurrency := map[string]decimal.Decimal{}

	for i := range e.snap.Accounts {
		acc := &e.snap.Accounts[i]
		balance := acc.Currency.RoundAmount(st.balances[acc.ID])
		st.balances[acc.ID] = balance

		res := e.snap.Rates.Resolve(acc.Currency, home, period.Time)
		e.warnIfUnresolved(res, acc.Currency, home, st)
		balanceHome := home.RoundAmount(balance.Mul(res.Rate))

		tot := e.totalsFor(acc.ID, totals)
		eventIDs := append([]int64(nil), tot.events...)
		sort.Slice(eventIDs, func(a, b int) bool { return eventIDs[a] < eventIDs[b] })

		out.AccountRows = append(out.AccountRows, core.AccountProjection{
			ScenarioID:   e.snap.Scenario.ID,
			AccountID:    acc.ID,
			Period:       period,
			Balance:      balance,
			BalanceHome:  balanceHome,
			Income:       acc.Currency.RoundAmount(tot.income),
			Expenses:     acc.Currency.RoundAmount(tot.expenses),
			Interest:     acc.Currency.RoundAmount(tot.interest),
			TransfersIn:  acc.Currency.RoundAmount(tot.in),
			TransfersOut: acc.Currency.RoundAmount(tot.out),
			FXRate:       res.Rate,
			FXProvenance: res.Provenance,
			EventIDs:     eventIDs,
		})

		signed := balanceHome
		if acc.IsLiability {
			liabilities = liabilities.Add(balanceHome)
			signed = balanceHome.Neg()
		} else {
			assets = assets.Add(balanceHome)
		}
		byType[string(acc.Type)] = byType[string(acc.Type)].Add(signed)
		byCurrency[string(acc.Currency)] = byCurrency[string(acc.Currency)].Add(signed)
	}

	netWorth := assets.Sub(liabilities)
	st.netWorth = netWorth

	out.NetWorthRows = append(out.NetWorthRows, core.NetWorthProjection{
		ScenarioID:       e.snap.Scenario.ID,
		Period:           period,
		TotalAssets:      assets,
		TotalLiabilities: liabilities,
		NetWorth:         netWorth,
		ByType:           byType,
		ByCurrency:       byCurrency,
	})
}

// credit posts an income amount (in flow currency) to the flow's account.
func (e *Engine) credit(flow core.CashFlow, amount decimal.Decimal, period core.Date, st *runState, totals map[int64]*periodTotals) {
	account := e.snap.account(flow.AccountID)
	converted, res := e.snap.Rates.Convert(amount, flow.Currency, account.Currency, period.Time)
	e.warnIfUnresolved(res, flow.Currency, account.Currency, st)
	converted = account.Currency.RoundAmount(converted)

	e.creditAccount(account, converted, st)
	tot := e.totalsFor(account.ID, totals)
	tot.income = tot.income.Add(converted)
}

// creditAccount moves value toward the owner: asset balances rise,
// liability principals fall.
func (e *Engine) creditAccount(acc *core.Account, amount decimal.Decimal, st *runState) {
	if acc.IsLiability {
		st.balances[acc.ID] = st.balances[acc.ID].Sub(amount)
	} else {
		st.balances[acc.ID] = st.balances[acc.ID].Add(amount)
	}
}

// debitAccount moves value away from the owner: asset balances fall,
// liability principals grow.
func (e *Engine) debitAccount(acc *core.Account, amount decimal.Decimal, st *runState) {
	if acc.IsLiability {
		st.balances[acc.ID] = st.balances[acc.ID].Add(amount)
	} else {
		st.balances[acc.ID] = st.balances[acc.ID].Sub(amount)
	}
}

func clampRate(r decimal.Decimal) decimal.Decimal {
	if r.GreaterThan(one) {
		return one
	}
	return r
}

func (e *Engine) totalsFor(accountID int64, totals map[int64]*periodTotals) *periodTotals {
	tot, ok := totals[accountID]
	if !ok {
		tot = &periodTotals{}
		totals[accountID] = tot
	}
	return tot
}

func (e *Engine) warnIfUnresolved(res fx.Resolution, from, to core.Currency, st *runState) {
	if res.Provenance == fx.ProvenanceNone && from != to {
		st.warn(fmt.Sprintf("no exchange rate for %s->%s, recorded at parity", from, to))
	}
}
