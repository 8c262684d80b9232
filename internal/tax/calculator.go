// Package tax computes annual and monthly net income from progressive
// bracket profiles.
//
// Brackets are marginal bands whose BaseTax already encodes the cumulative
// tax of every lower band, so taxing an income means matching exactly one
// bracket and evaluating its formula. Nothing here sums brackets.
package tax

import (
	"github.com/shopspring/decimal"

	"horizon/internal/core"
)

var twelve = decimal.NewFromInt(12)

// Result is the outcome of taxing one annual income figure.
type Result struct {
	// AnnualTax is bracket tax after the primary rebate, never negative.
	AnnualTax decimal.Decimal
	// MonthlySocialLevy is the capped social-insurance contribution.
	// It is a distinct levy, not part of AnnualTax.
	MonthlySocialLevy decimal.Decimal
}

// MonthlyTax returns the annual bracket tax spread over twelve months.
func (r Result) MonthlyTax() decimal.Decimal {
	return r.AnnualTax.Div(twelve)
}

// MonthlyDeduction is the total taken off one month's gross income.
func (r Result) MonthlyDeduction() decimal.Decimal {
	return r.MonthlyTax().Add(r.MonthlySocialLevy)
}

// Compute taxes an annualized income figure against a profile.
//
// The matched bracket is the last whose lower bound is <= income; its tax
// is baseTax + (income - lower) * rate. The primary rebate is subtracted
// afterwards, floored at zero. Income at or below zero, or a profile with
// no brackets, owes nothing.
func Compute(annualIncome decimal.Decimal, profile core.TaxProfile) Result {
	res := Result{AnnualTax: decimal.Zero, MonthlySocialLevy: decimal.Zero}
	if annualIncome.IsPositive() && len(profile.Brackets) > 0 {
		bracket := matchBracket(annualIncome, profile.Brackets)
		if bracket != nil {
			gross := bracket.BaseTax.Add(annualIncome.Sub(bracket.Lower).Mul(bracket.Rate))
			net := gross.Sub(profile.Rebates.Primary)
			if net.IsNegative() {
				net = decimal.Zero
			}
			res.AnnualTax = net
		}
	}

	if profile.SocialRate.IsPositive() && annualIncome.IsPositive() {
		levy := annualIncome.Div(twelve).Mul(profile.SocialRate)
		if profile.SocialMonthlyCap.IsPositive() && levy.GreaterThan(profile.SocialMonthlyCap) {
			levy = profile.SocialMonthlyCap
		}
		res.MonthlySocialLevy = levy
	}

	return res
}

// NetMonthly nets a gross monthly-equivalent income: gross minus one
// month's bracket tax minus the social levy, floored at zero.
func NetMonthly(grossMonthly decimal.Decimal, profile core.TaxProfile) decimal.Decimal {
	res := Compute(core.Annualize(grossMonthly), profile)
	net := grossMonthly.Sub(res.MonthlyDeduction())
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// matchBracket returns the last bracket whose lower bound is <= income,
// assuming ascending lower-bound order. Income below every bracket matches
// nothing.
func matchBracket(income decimal.Decimal, brackets []core.TaxBracket) *core.TaxBracket {
	var matched *core.TaxBracket
	for i := range brackets {
		if brackets[i].Lower.LessThanOrEqual(income) {
			matched = &brackets[i]
		} else {
			break
		}
	}
	return matched
}
