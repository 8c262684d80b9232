package core

import "github.com/shopspring/decimal"

// Monthly-equivalent conversion. Weekly and biweekly amounts are spread
// over the year (52 and 26 payments) before dividing into months, so a
// weekly 100 is 433.33..., not 400. Results keep full division precision;
// round with Currency.RoundAmount at the posting boundary.

var (
	twelve      = decimal.NewFromInt(12)
	weeksYear   = decimal.NewFromInt(52)
	fortnights  = decimal.NewFromInt(26)
	three       = decimal.NewFromInt(3)
)

// ToMonthly converts a per-period amount into its monthly equivalent.
// Once-off amounts have no recurring monthly equivalent and map to zero;
// they are applied only in the single period containing their date.
func ToMonthly(amount decimal.Decimal, f Frequency) (decimal.Decimal, error) {
	switch f {
	case Weekly:
		return amount.Mul(weeksYear).Div(twelve), nil
	case Biweekly:
		return amount.Mul(fortnights).Div(twelve), nil
	case Monthly:
		return amount, nil
	case Quarterly:
		return amount.Div(three), nil
	case Annually:
		return amount.Div(twelve), nil
	case Once:
		return decimal.Zero, nil
	}
	return decimal.Zero, ErrInvalidFrequency
}

// FromMonthly expands a monthly-equivalent value back into the per-period
// amount for the given frequency. It inverts ToMonthly for every frequency
// except Once, which is not round-trippable and yields zero.
func FromMonthly(monthly decimal.Decimal, f Frequency) (decimal.Decimal, error) {
	switch f {
	case Weekly:
		return monthly.Mul(twelve).Div(weeksYear), nil
	case Biweekly:
		return monthly.Mul(twelve).Div(fortnights), nil
	case Monthly:
		return monthly, nil
	case Quarterly:
		return monthly.Mul(three), nil
	case Annually:
		return monthly.Mul(twelve), nil
	case Once:
		return decimal.Zero, nil
	}
	return decimal.Zero, ErrInvalidFrequency
}

// Annualize returns twelve times the monthly-equivalent value. Tax is
// always computed on this figure, even for non-monthly flows.
func Annualize(monthly decimal.Decimal) decimal.Decimal {
	return monthly.Mul(twelve)
}
