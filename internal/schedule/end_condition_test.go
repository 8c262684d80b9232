package schedule

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

func TestUntilDateChecker(t *testing.T) {
	checker := UntilDateChecker{}
	cond := core.EndCondition{Kind: core.EndUntilDate, Date: core.NewDate(2026, 3, 15)}

	tests := []struct {
		name   string
		period core.Date
		want   bool
	}{
		{"before end month", core.NewDate(2026, 2, 1), false},
		{"period containing end date still fires", core.NewDate(2026, 3, 1), false},
		{"month after end date", core.NewDate(2026, 4, 1), true},
		{"year after", core.NewDate(2027, 3, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.Satisfied(cond, tt.period, PriorState{})
			if got != tt.want {
				t.Errorf("Satisfied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBalanceThresholdChecker(t *testing.T) {
	checker := BalanceThresholdChecker{}
	cond := core.EndCondition{Kind: core.EndBalanceThreshold, AccountID: 7, Threshold: dec("10000")}

	tests := []struct {
		name    string
		balance string
		want    bool
	}{
		{"below threshold", "9999.99", false},
		{"at threshold", "10000", true},
		{"above threshold", "15000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := PriorState{Balances: map[int64]decimal.Decimal{7: dec(tt.balance)}}
			got := checker.Satisfied(cond, core.NewDate(2026, 1, 1), prior)
			if got != tt.want {
				t.Errorf("Satisfied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccountSettledChecker(t *testing.T) {
	checker := AccountSettledChecker{}
	cond := core.EndCondition{Kind: core.EndAccountSettled, AccountID: 3}

	tests := []struct {
		name    string
		initial string
		current string
		want    bool
	}{
		{"still owing", "20000", "12000", false},
		{"exactly zero", "20000", "0", true},
		{"sign inverted (overpaid)", "20000", "-50", true},
		{"negative principal still open", "-20000", "-12000", false},
		{"negative principal settled", "-20000", "100", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := PriorState{
				Balances:        map[int64]decimal.Decimal{3: dec(tt.current)},
				InitialBalances: map[int64]decimal.Decimal{3: dec(tt.initial)},
			}
			got := checker.Satisfied(cond, core.NewDate(2026, 1, 1), prior)
			if got != tt.want {
				t.Errorf("Satisfied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEndConditionChecker(t *testing.T) {
	for _, kind := range []core.EndConditionKind{"", core.EndNone, core.EndUntilDate, core.EndBalanceThreshold, core.EndAccountSettled} {
		if _, err := GetEndConditionChecker(kind); err != nil {
			t.Errorf("GetEndConditionChecker(%q) error = %v", kind, err)
		}
	}
	if _, err := GetEndConditionChecker("when_pigs_fly"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"balance >= 10000", false},
		{"networth < 0", false},
		{"NETWORTH == 1000000", false},
		{"balance", true},
		{"debt >= 100", true},
		{"balance ~ 100", true},
		{"balance >= lots", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := ParseCondition(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseCondition(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestCondition_Eval(t *testing.T) {
	prior := PriorState{
		Balances: map[int64]decimal.Decimal{5: dec("2500")},
		NetWorth: dec("-100"),
	}

	tests := []struct {
		expr      string
		accountID int64
		want      bool
	}{
		{"balance >= 2500", 5, true},
		{"balance > 2500", 5, false},
		{"balance != 0", 5, true},
		{"balance >= 1", 0, false}, // no account to read
		{"networth < 0", 0, true},
		{"networth >= 0", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cond, err := ParseCondition(tt.expr)
			if err != nil {
				t.Fatalf("ParseCondition() error = %v", err)
			}
			if got := cond.Eval(prior, tt.accountID); got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}
}
