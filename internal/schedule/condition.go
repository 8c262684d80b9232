package schedule

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Condition is a parsed stop/trigger expression. The grammar is
// deliberately tiny: "<subject> <op> <number>" where subject is "balance"
// (the event's or flow's linked account) or "networth", and op is one of
// < <= > >= == !=.
type Condition struct {
	Subject string
	Op      string
	Value   decimal.Decimal
}

const (
	SubjectBalance  = "balance"
	SubjectNetWorth = "networth"
)

// ParseCondition parses an expression. Malformed expressions are a user
// data problem, not a fatal one; callers log the error and treat the
// condition as never satisfied.
func ParseCondition(expr string) (Condition, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(expr)))
	if len(fields) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want <subject> <op> <value>", expr)
	}

	subject := fields[0]
	if subject != SubjectBalance && subject != SubjectNetWorth {
		return Condition{}, fmt.Errorf("condition %q: unknown subject %q", expr, subject)
	}

	switch fields[1] {
	case "<", "<=", ">", ">=", "==", "!=":
	default:
		return Condition{}, fmt.Errorf("condition %q: unknown operator %q", expr, fields[1])
	}

	value, err := decimal.NewFromString(fields[2])
	if err != nil {
		return Condition{}, fmt.Errorf("condition %q: bad value: %w", expr, err)
	}

	return Condition{Subject: subject, Op: fields[1], Value: value}, nil
}

// Eval evaluates the condition against the prior period's state.
// accountID supplies the balance subject; zero with a balance subject is
// never satisfied.
func (c Condition) Eval(prior PriorState, accountID int64) bool {
	var left decimal.Decimal
	switch c.Subject {
	case SubjectBalance:
		if accountID == 0 {
			return false
		}
		left = prior.Balance(accountID)
	case SubjectNetWorth:
		left = prior.NetWorth
	default:
		return false
	}

	cmp := left.Cmp(c.Value)
	switch c.Op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	}
	return false
}
