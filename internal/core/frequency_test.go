package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestToMonthly(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		freq   Frequency
		want   string
	}{
		{"weekly spreads over 52 payments", "120", Weekly, "520"},
		{"biweekly spreads over 26 payments", "120", Biweekly, "260"},
		{"monthly is identity", "2500", Monthly, "2500"},
		{"quarterly divides by three", "300", Quarterly, "100"},
		{"annually divides by twelve", "1200", Annually, "100"},
		{"once has no monthly equivalent", "5000", Once, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMonthly(dec(tt.amount), tt.freq)
			if err != nil {
				t.Fatalf("ToMonthly() error = %v", err)
			}
			if !got.Equal(dec(tt.want)) {
				t.Errorf("ToMonthly() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToMonthly_InvalidFrequency(t *testing.T) {
	if _, err := ToMonthly(dec("1"), Frequency("fortnightly")); err == nil {
		t.Error("ToMonthly() expected error for unknown frequency")
	}
}

// Round-trip law: FromMonthly(ToMonthly(x, f), f) == x to currency
// precision for every recurring frequency.
func TestRoundTrip(t *testing.T) {
	cur := Currency("USD")
	freqs := []Frequency{Weekly, Biweekly, Monthly, Quarterly, Annually}
	amounts := []string{"0.01", "1", "33.33", "100", "1234.56", "99999.99"}

	for _, f := range freqs {
		for _, a := range amounts {
			x := dec(a)
			m, err := ToMonthly(x, f)
			if err != nil {
				t.Fatalf("ToMonthly(%s, %s) error = %v", a, f, err)
			}
			back, err := FromMonthly(m, f)
			if err != nil {
				t.Fatalf("FromMonthly(%s, %s) error = %v", m, f, err)
			}
			if !cur.RoundAmount(back).Equal(x) {
				t.Errorf("round trip %s @ %s: got %s, want %s", a, f, cur.RoundAmount(back), x)
			}
		}
	}
}

// Once is deliberately not round-trippable: its monthly equivalent is zero.
func TestRoundTrip_Once(t *testing.T) {
	m, err := ToMonthly(dec("5000"), Once)
	if err != nil {
		t.Fatalf("ToMonthly() error = %v", err)
	}
	if !m.IsZero() {
		t.Errorf("ToMonthly(once) = %s, want 0", m)
	}
	back, err := FromMonthly(m, Once)
	if err != nil {
		t.Fatalf("FromMonthly() error = %v", err)
	}
	if !back.IsZero() {
		t.Errorf("FromMonthly(once) = %s, want 0", back)
	}
}

// Repeated conversion must not accumulate drift beyond the minor unit.
func TestToMonthly_NoAccumulationDrift(t *testing.T) {
	cur := Currency("EUR")
	x := dec("769.23")
	sum := decimal.Zero
	m, _ := ToMonthly(x, Weekly)
	for i := 0; i < 1200; i++ {
		sum = sum.Add(m)
	}
	direct := m.Mul(decimal.NewFromInt(1200))
	if !cur.RoundAmount(sum).Equal(cur.RoundAmount(direct)) {
		t.Errorf("accumulated %s != direct %s", cur.RoundAmount(sum), cur.RoundAmount(direct))
	}
}

func TestAnnualize(t *testing.T) {
	if got := Annualize(dec("100")); !got.Equal(dec("1200")) {
		t.Errorf("Annualize(100) = %s, want 1200", got)
	}
}
