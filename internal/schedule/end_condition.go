// Package schedule decides which cash flows and scenario events are active
// in a given projection period.
//
// End-condition checking follows the strategy pattern: each condition kind
// has its own checker, registered in a lookup table.
package schedule

import (
	"fmt"

	"github.com/shopspring/decimal"

	"horizon/internal/core"
)

// PriorState is the most recently computed period's closing state. End
// conditions are always evaluated against it, never against balances
// computed later in the same period, so a flow cannot depend on its own
// period's outcome.
type PriorState struct {
	// Balances holds each account's closing balance after the previous
	// period (the seeded opening balance before the first period).
	Balances map[int64]decimal.Decimal
	// InitialBalances are the balances the run was seeded with; the
	// settled check compares signs against them.
	InitialBalances map[int64]decimal.Decimal
	// NetWorth is the previous period's aggregate in home currency.
	NetWorth decimal.Decimal
}

// Balance returns an account's prior balance, zero when unknown.
func (s PriorState) Balance(accountID int64) decimal.Decimal {
	if b, ok := s.Balances[accountID]; ok {
		return b
	}
	return decimal.Zero
}

// EndConditionChecker reports whether a flow's stop rule has been met.
type EndConditionChecker interface {
	Satisfied(cond core.EndCondition, period core.Date, prior PriorState) bool
}

// NoneChecker never stops a flow.
type NoneChecker struct{}

func (NoneChecker) Satisfied(core.EndCondition, core.Date, PriorState) bool {
	return false
}

// UntilDateChecker stops a flow after the period containing its end date:
// the flow still fires in that period and never afterwards.
type UntilDateChecker struct{}

func (UntilDateChecker) Satisfied(cond core.EndCondition, period core.Date, _ PriorState) bool {
	if cond.Date.IsEmpty() {
		return false
	}
	return period.MonthStart().After(cond.Date.MonthStart().Time)
}

// BalanceThresholdChecker stops a flow once the linked account's prior
// closing balance has reached the threshold (savings-goal reading; loan
// payoff uses the settled condition instead).
type BalanceThresholdChecker struct{}

func (BalanceThresholdChecker) Satisfied(cond core.EndCondition, _ core.Date, prior PriorState) bool {
	if cond.AccountID == 0 {
		return false
	}
	return prior.Balance(cond.AccountID).GreaterThanOrEqual(cond.Threshold)
}

// AccountSettledChecker stops a flow once the target account's prior
// balance reaches zero or inverts sign relative to its seeded balance.
type AccountSettledChecker struct{}

func (AccountSettledChecker) Satisfied(cond core.EndCondition, _ core.Date, prior PriorState) bool {
	if cond.AccountID == 0 {
		return false
	}
	balance := prior.Balance(cond.AccountID)
	if balance.IsZero() {
		return true
	}
	initial, ok := prior.InitialBalances[cond.AccountID]
	if !ok || initial.IsZero() {
		return false
	}
	return balance.Sign() != initial.Sign()
}

var endConditionCheckers = map[core.EndConditionKind]EndConditionChecker{
	core.EndNone:             NoneChecker{},
	core.EndUntilDate:        UntilDateChecker{},
	core.EndBalanceThreshold: BalanceThresholdChecker{},
	core.EndAccountSettled:   AccountSettledChecker{},
}

// GetEndConditionChecker returns the checker for a condition kind. The
// empty kind means "no condition" and maps to the none checker.
func GetEndConditionChecker(kind core.EndConditionKind) (EndConditionChecker, error) {
	if kind == "" {
		kind = core.EndNone
	}
	checker, ok := endConditionCheckers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown end condition kind: %s", kind)
	}
	return checker, nil
}
