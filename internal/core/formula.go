package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EvalAmountFormula evaluates the restricted amount-formula grammar used by
// cash flows and scenario events: a plain number, or two numbers joined by
// one of + - * /. Anything richer lives in the authoring layer, not here.
func EvalAmountFormula(formula string) (decimal.Decimal, error) {
	expr := strings.TrimSpace(formula)
	if expr == "" {
		return decimal.Zero, errors.New("empty formula")
	}

	// Scan for an operator outside position 0 so leading signs parse as
	// part of the first operand.
	opIdx := -1
	var op byte
	for i := 1; i < len(expr); i++ {
		switch expr[i] {
		case '+', '-', '*', '/':
			opIdx = i
			op = expr[i]
		}
		if opIdx >= 0 {
			break
		}
	}

	if opIdx < 0 {
		v, err := decimal.NewFromString(expr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse formula %q: %w", formula, err)
		}
		return v, nil
	}

	left, err := decimal.NewFromString(strings.TrimSpace(expr[:opIdx]))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse formula %q: %w", formula, err)
	}
	right, err := decimal.NewFromString(strings.TrimSpace(expr[opIdx+1:]))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse formula %q: %w", formula, err)
	}

	switch op {
	case '+':
		return left.Add(right), nil
	case '-':
		return left.Sub(right), nil
	case '*':
		return left.Mul(right), nil
	case '/':
		if right.IsZero() {
			return decimal.Zero, fmt.Errorf("formula %q divides by zero", formula)
		}
		return left.Div(right), nil
	}
	return decimal.Zero, fmt.Errorf("formula %q: unsupported operator", formula)
}
