package tax

import (
	"testing"

	"github.com/shopspring/decimal"

	"horizon/internal/core"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// Three contiguous brackets with precomputed cumulative base tax:
//	0      - 50000  @ 10%  base 0
//	50000  - 150000 @ 20%  base 5000
//	150000 -        @ 30%  base 25000
func progressiveProfile() core.TaxProfile {
	return core.TaxProfile{
		Brackets: []core.TaxBracket{
			{Lower: dec("0"), Upper: decPtr("50000"), Rate: dec("0.10"), BaseTax: dec("0")},
			{Lower: dec("50000"), Upper: decPtr("150000"), Rate: dec("0.20"), BaseTax: dec("5000")},
			{Lower: dec("150000"), Rate: dec("0.30"), BaseTax: dec("25000")},
		},
	}
}

func TestCompute_MatchedBracketOnly(t *testing.T) {
	tests := []struct {
		name   string
		income string
		want   string
	}{
		{"first bracket", "30000", "3000"},
		{"exact bracket boundary", "50000", "5000"},
		{"middle bracket", "100000", "15000"},
		{"top bracket", "200000", "40000"},
		{"zero income", "0", "0"},
	}

	profile := progressiveProfile()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(dec(tt.income), profile)
			if !got.AnnualTax.Equal(dec(tt.want)) {
				t.Errorf("Compute(%s) = %s, want %s", tt.income, got.AnnualTax, tt.want)
			}
		})
	}
}

// A single open-ended flat bracket with no rebate taxes the whole
// income at its rate.
func TestCompute_SingleFlatBracket(t *testing.T) {
	profile := core.TaxProfile{
		Brackets: []core.TaxBracket{
			{Lower: dec("0"), Rate: dec("0.20"), BaseTax: dec("0")},
		},
	}
	got := Compute(dec("120000"), profile)
	if !got.AnnualTax.Equal(dec("24000")) {
		t.Errorf("Compute(120000) = %s, want 24000", got.AnnualTax)
	}
}

func TestCompute_RebateFloorsAtZero(t *testing.T) {
	profile := progressiveProfile()
	profile.Rebates.Primary = dec("10000")

	got := Compute(dec("30000"), profile)
	if !got.AnnualTax.IsZero() {
		t.Errorf("rebated tax = %s, want 0", got.AnnualTax)
	}

	got = Compute(dec("100000"), profile)
	if !got.AnnualTax.Equal(dec("5000")) {
		t.Errorf("rebated tax = %s, want 5000", got.AnnualTax)
	}
}

func TestCompute_SocialLevyCapped(t *testing.T) {
	profile := core.TaxProfile{
		SocialRate:       dec("0.01"),
		SocialMonthlyCap: dec("177.12"),
	}

	// 10000/month * 1% = 100, under cap.
	got := Compute(dec("120000"), profile)
	if !got.MonthlySocialLevy.Equal(dec("100")) {
		t.Errorf("levy = %s, want 100", got.MonthlySocialLevy)
	}

	// 50000/month * 1% = 500, capped.
	got = Compute(dec("600000"), profile)
	if !got.MonthlySocialLevy.Equal(dec("177.12")) {
		t.Errorf("levy = %s, want cap 177.12", got.MonthlySocialLevy)
	}
}

// Monotonicity: for ascending contiguous brackets, tax never decreases as
// income rises and is never negative after the rebate.
func TestCompute_Monotonic(t *testing.T) {
	profile := progressiveProfile()
	profile.Rebates.Primary = dec("2000")

	prev := decimal.Zero
	for income := int64(0); income <= 300000; income += 2500 {
		got := Compute(decimal.NewFromInt(income), profile)
		if got.AnnualTax.IsNegative() {
			t.Fatalf("tax negative at income %d: %s", income, got.AnnualTax)
		}
		if got.AnnualTax.LessThan(prev) {
			t.Fatalf("tax decreased at income %d: %s < %s", income, got.AnnualTax, prev)
		}
		prev = got.AnnualTax
	}
}

func TestNetMonthly(t *testing.T) {
	profile := core.TaxProfile{
		Brackets: []core.TaxBracket{
			{Lower: dec("0"), Rate: dec("0.20"), BaseTax: dec("0")},
		},
	}
	// 10000 gross -> 120000 annual -> 24000 tax -> 2000/month -> 8000 net.
	got := NetMonthly(dec("10000"), profile)
	if !got.Equal(dec("8000")) {
		t.Errorf("NetMonthly(10000) = %s, want 8000", got)
	}
}

func TestCompute_NoBrackets(t *testing.T) {
	got := Compute(dec("120000"), core.TaxProfile{})
	if !got.AnnualTax.IsZero() {
		t.Errorf("tax with empty profile = %s, want 0", got.AnnualTax)
	}
}
