package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Weekly    Frequency = "weekly"
	Biweekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Annually  Frequency = "annually"
	Once      Frequency = "once"
)

const (
	FlowIncome       FlowKind = "income"
	FlowExpense      FlowKind = "expense"
	FlowContribution FlowKind = "contribution"
)

const (
	EndNone             EndConditionKind = "none"
	EndUntilDate        EndConditionKind = "until_date"
	EndBalanceThreshold EndConditionKind = "balance_threshold"
	EndAccountSettled   EndConditionKind = "account_settled"
)

type (
	Frequency string

	// FlowKind discriminates the three cash-flow variants. They share one
	// shape so the scheduler and the amount normalizer stay kind-agnostic.
	FlowKind string

	EndConditionKind string

	// EndCondition stops a recurring cash flow. Which fields are read
	// depends on Kind: Date for until_date, AccountID+Threshold for
	// balance_threshold, AccountID for account_settled.
	EndCondition struct {
		Kind      EndConditionKind
		Date      Date
		AccountID int64
		Threshold decimal.Decimal
	}

	// CashFlow is a recurring income source, expense definition or
	// investment contribution. The engine reads these, never mutates them.
	CashFlow struct {
		ID        int64
		UserID    int64
		Kind      FlowKind
		Name      string
		Currency  Currency
		Amount    decimal.Decimal
		// Formula, when set, derives the amount instead of the fixed
		// value. A formula that fails to parse falls back to Amount.
		Formula   string
		Frequency Frequency
		StartDate Date
		Active    bool
		End       EndCondition

		// Income only.
		PreTax       bool
		TaxProfileID int64

		// AccountID is credited for income and debited for expenses and
		// contributions. TargetAccountID, when set, receives the debited
		// amount (transfer semantics: loan payments, contributions).
		AccountID       int64
		TargetAccountID int64
	}
)

func (f Frequency) Validate() error {
	switch f {
	case Weekly, Biweekly, Monthly, Quarterly, Annually, Once:
		return nil
	}
	return ErrInvalidFrequency
}

func (k FlowKind) Validate() error {
	switch k {
	case FlowIncome, FlowExpense, FlowContribution:
		return nil
	}
	return errors.New("invalid flow kind")
}

func (e EndCondition) Validate() error {
	switch e.Kind {
	case "", EndNone:
		return nil
	case EndUntilDate:
		if e.Date.IsEmpty() {
			return errors.New("until_date end condition requires a date")
		}
	case EndBalanceThreshold:
		if e.AccountID == 0 {
			return errors.New("balance_threshold end condition requires a linked account")
		}
	case EndAccountSettled:
		if e.AccountID == 0 {
			return errors.New("account_settled end condition requires a target account")
		}
	default:
		return errors.New("invalid end condition kind")
	}
	return nil
}

func (cf CashFlow) Validate() error {
	if err := cf.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(cf.Name) == "" {
		return ErrEmptyName
	}
	if len(cf.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := cf.Currency.Validate(); err != nil {
		return err
	}
	if err := cf.Frequency.Validate(); err != nil {
		return err
	}
	if cf.Formula == "" && cf.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if cf.AccountID == 0 {
		return errors.New("cash flow requires an account")
	}
	return cf.End.Validate()
}

// EffectiveAmount returns the per-period amount: the formula result when a
// formula is set and parseable, the fixed amount otherwise. Formula errors
// are deliberately swallowed into the fallback; callers that care about
// malformed formulas use EvalAmountFormula directly.
func (cf CashFlow) EffectiveAmount() decimal.Decimal {
	if cf.Formula == "" {
		return cf.Amount
	}
	v, err := EvalAmountFormula(cf.Formula)
	if err != nil {
		return cf.Amount
	}
	return v
}
