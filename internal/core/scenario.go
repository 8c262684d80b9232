package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TriggerDate      TriggerType = "date"
	TriggerAge       TriggerType = "age"
	TriggerCondition TriggerType = "condition"
)

type (
	TriggerType string

	// Assumptions is the free-form assumption set attached to a scenario
	// (inflation rate, growth rate, projection horizon and so on).
	Assumptions map[string]decimal.Decimal

	// Scenario is a named what-if universe anchored to a start date.
	Scenario struct {
		ID           int64
		UserID       int64
		Name         string
		StartDate    Date
		EndDate      Date
		// EndCondition is a textual stop rule evaluated against each
		// period's closing state, e.g. "networth >= 1000000".
		EndCondition string
		Assumptions  Assumptions
		IsBaseline   bool
		LastRunAt    time.Time
	}

	// ScenarioEvent is a one-off or recurring ad-hoc movement inside a
	// scenario: a bonus, a house purchase, an inheritance.
	ScenarioEvent struct {
		ID         int64
		ScenarioID int64
		Trigger    TriggerType
		// TriggerDate for date triggers, TriggerAge for age triggers,
		// Condition for expression triggers.
		TriggerDate Date
		TriggerAge  int
		Condition   string
		Category    string
		Currency    Currency
		// Amount is signed: positive credits the account, negative
		// debits it.
		Amount  decimal.Decimal
		Formula string
		// AccountID is the affected account. Events without one are
		// skipped with a warning.
		AccountID int64
		Once      bool
		// Recurrence applies when Once is false.
		Recurrence    Frequency
		RecurrenceEnd Date
	}
)

func (s Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.StartDate.IsEmpty() {
		return errors.New("scenario requires a start date")
	}
	if !s.EndDate.IsEmpty() && s.EndDate.Before(s.StartDate.Time) {
		return errors.New("end date must not precede start date")
	}
	return nil
}

// Horizon returns the number of monthly periods to project when the
// scenario has no explicit end date: the "years" assumption, capped to a
// sane range, defaulting to ten years.
func (s Scenario) Horizon() int {
	const defaultYears = 10
	years := defaultYears
	if v, ok := s.Assumptions["years"]; ok {
		n := int(v.IntPart())
		if n >= 1 && n <= 100 {
			years = n
		}
	}
	return years * 12
}

// AssumptionOr returns a named assumption or the fallback when absent.
func (s Scenario) AssumptionOr(name string, fallback decimal.Decimal) decimal.Decimal {
	if v, ok := s.Assumptions[name]; ok {
		return v
	}
	return fallback
}

func (e ScenarioEvent) Validate() error {
	switch e.Trigger {
	case TriggerDate:
		if e.TriggerDate.IsEmpty() {
			return errors.New("date trigger requires a date")
		}
	case TriggerAge:
		if e.TriggerAge <= 0 {
			return errors.New("age trigger requires a positive age")
		}
	case TriggerCondition:
		if strings.TrimSpace(e.Condition) == "" {
			return errors.New("condition trigger requires an expression")
		}
	default:
		return errors.New("invalid trigger type")
	}
	if err := e.Currency.Validate(); err != nil {
		return err
	}
	if !e.Once {
		if err := e.Recurrence.Validate(); err != nil {
			return err
		}
		if e.Recurrence == Once {
			return errors.New("recurring event cannot use once frequency")
		}
	}
	return nil
}

// EffectiveAmount mirrors CashFlow.EffectiveAmount for events.
func (e ScenarioEvent) EffectiveAmount() decimal.Decimal {
	if e.Formula == "" {
		return e.Amount
	}
	v, err := EvalAmountFormula(e.Formula)
	if err != nil {
		return e.Amount
	}
	return v
}
