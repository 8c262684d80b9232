package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

type (
	// TaxBracket is one marginal band. BaseTax is the precomputed
	// cumulative tax owed on all income below Lower, so matching a single
	// bracket is enough to tax a figure; callers never sum brackets.
	TaxBracket struct {
		Lower decimal.Decimal
		// Upper is nil for the open-ended top bracket.
		Upper   *decimal.Decimal
		Rate    decimal.Decimal
		BaseTax decimal.Decimal
	}

	// TaxRebates are flat deductions from computed tax by age band. Only
	// the primary rebate is applied in the current design.
	TaxRebates struct {
		Primary   decimal.Decimal
		Secondary decimal.Decimal
		Tertiary  decimal.Decimal
	}

	TaxProfile struct {
		ID       int64
		UserID   int64
		Year     int
		Country  string
		Brackets []TaxBracket
		// SocialRate, when non-zero, levies monthlyIncome*rate capped at
		// SocialMonthlyCap. Reported separately from bracket tax.
		SocialRate       decimal.Decimal
		SocialMonthlyCap decimal.Decimal
		Rebates          TaxRebates
	}
)

func (p TaxProfile) Validate() error {
	prev := decimal.NewFromInt(-1)
	for _, b := range p.Brackets {
		if b.Lower.IsNegative() {
			return errors.New("bracket lower bound cannot be negative")
		}
		if b.Lower.LessThanOrEqual(prev) && !prev.IsNegative() {
			return errors.New("brackets must be sorted by ascending lower bound")
		}
		if b.Rate.IsNegative() {
			return errors.New("bracket rate cannot be negative")
		}
		prev = b.Lower
	}
	if p.SocialRate.IsNegative() {
		return errors.New("social insurance rate cannot be negative")
	}
	return nil
}
