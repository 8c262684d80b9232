package fx

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func obsTime(day int) time.Time {
	return time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC)
}

func TestResolve_Direct(t *testing.T) {
	table := NewTable([]Observation{
		{Base: "EUR", Quote: "USD", Rate: dec("1.10"), ObservedAt: obsTime(1), Source: "ecb"},
		{Base: "EUR", Quote: "USD", Rate: dec("1.12"), ObservedAt: obsTime(5), Source: "ecb"},
		{Base: "EUR", Quote: "USD", Rate: dec("1.08"), ObservedAt: obsTime(3), Source: "ecb"},
	}, "")

	res := table.Resolve("EUR", "USD", obsTime(10))
	if res.Provenance != ProvenanceDirect {
		t.Fatalf("provenance = %s, want direct", res.Provenance)
	}
	if !res.Rate.Equal(dec("1.12")) {
		t.Errorf("rate = %s, want most recent 1.12", res.Rate)
	}
	if !res.ObservedAt.Equal(obsTime(5)) {
		t.Errorf("observedAt = %v, want observation time", res.ObservedAt)
	}
}

func TestResolve_Inverse(t *testing.T) {
	table := NewTable([]Observation{
		{Base: "USD", Quote: "ZAR", Rate: dec("16"), ObservedAt: obsTime(2)},
	}, "")

	res := table.Resolve("ZAR", "USD", obsTime(10))
	if res.Provenance != ProvenanceInverse {
		t.Fatalf("provenance = %s, want inverse", res.Provenance)
	}
	if !res.Rate.Equal(dec("0.0625")) {
		t.Errorf("rate = %s, want 0.0625", res.Rate)
	}
}

func TestResolve_CrossViaReference(t *testing.T) {
	table := NewTable([]Observation{
		{Base: "EUR", Quote: "USD", Rate: dec("1.10"), ObservedAt: obsTime(1)},
		{Base: "USD", Quote: "GBP", Rate: dec("0.80"), ObservedAt: obsTime(2)},
	}, "USD")

	asOf := obsTime(20)
	res := table.Resolve("EUR", "GBP", asOf)
	if res.Provenance != ProvenanceCalculated {
		t.Fatalf("provenance = %s, want calculated", res.Provenance)
	}
	if !res.Rate.Equal(dec("0.88")) {
		t.Errorf("rate = %s, want 0.88", res.Rate)
	}
	// Calculated rates are stamped at resolution time, not either leg's.
	if !res.ObservedAt.Equal(asOf) {
		t.Errorf("observedAt = %v, want resolution time %v", res.ObservedAt, asOf)
	}
}

func TestResolve_CrossWithInvertedLeg(t *testing.T) {
	table := NewTable([]Observation{
		{Base: "USD", Quote: "EUR", Rate: dec("0.90"), ObservedAt: obsTime(1)},
		{Base: "USD", Quote: "GBP", Rate: dec("0.81"), ObservedAt: obsTime(1)},
	}, "USD")

	res := table.Resolve("EUR", "GBP", obsTime(5))
	if res.Provenance != ProvenanceCalculated {
		t.Fatalf("provenance = %s, want calculated", res.Provenance)
	}
	want := dec("1").Div(dec("0.90")).Mul(dec("0.81"))
	if !res.Rate.Equal(want) {
		t.Errorf("rate = %s, want %s", res.Rate, want)
	}
}

func TestResolve_NoPath(t *testing.T) {
	table := NewTable([]Observation{
		{Base: "EUR", Quote: "USD", Rate: dec("1.10"), ObservedAt: obsTime(1)},
	}, "USD")

	res := table.Resolve("CHF", "NOK", obsTime(5))
	if res.Provenance != ProvenanceNone {
		t.Fatalf("provenance = %s, want none", res.Provenance)
	}
	if !res.Rate.Equal(dec("1")) {
		t.Errorf("rate = %s, want sentinel 1", res.Rate)
	}
}

func TestResolve_SameCurrency(t *testing.T) {
	table := NewTable(nil, "")
	res := table.Resolve("USD", "USD", obsTime(1))
	if res.Provenance != ProvenanceDirect || !res.Rate.Equal(dec("1")) {
		t.Errorf("same-currency = (%s, %s), want (1, direct)", res.Rate, res.Provenance)
	}
}

// Reciprocity: with both a direct and an inverse observation present,
// Resolve(A,B) == 1/Resolve(B,A) within rounding tolerance.
func TestResolve_Reciprocal(t *testing.T) {
	table := NewTable([]Observation{
		{Base: "EUR", Quote: "USD", Rate: dec("1.1037"), ObservedAt: obsTime(1)},
	}, "")

	ab := table.Resolve("EUR", "USD", obsTime(5)).Rate
	ba := table.Resolve("USD", "EUR", obsTime(5)).Rate

	diff := ab.Mul(ba).Sub(dec("1")).Abs()
	if diff.GreaterThan(dec("0.0000000001")) {
		t.Errorf("reciprocal drift %s beyond tolerance", diff)
	}
}

func TestConvert(t *testing.T) {
	table := NewTable([]Observation{
		{Base: "EUR", Quote: "USD", Rate: dec("1.10"), ObservedAt: obsTime(1)},
	}, "")

	amount, res := table.Convert(dec("200"), "EUR", "USD", obsTime(5))
	if !amount.Equal(dec("220")) {
		t.Errorf("converted = %s, want 220", amount)
	}
	if res.Provenance != ProvenanceDirect {
		t.Errorf("provenance = %s, want direct", res.Provenance)
	}
}

func TestNewTable_DropsInvalidRates(t *testing.T) {
	table := NewTable([]Observation{
		{Base: "EUR", Quote: "USD", Rate: dec("0"), ObservedAt: obsTime(1)},
		{Base: "EUR", Quote: "USD", Rate: dec("-1"), ObservedAt: obsTime(2)},
	}, "")

	res := table.Resolve("EUR", "USD", obsTime(5))
	if res.Provenance != ProvenanceNone {
		t.Errorf("provenance = %s, want none (invalid observations dropped)", res.Provenance)
	}
}
