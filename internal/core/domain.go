package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountBank       AccountType = "bank"
	AccountInvestment AccountType = "investment"
	AccountCrypto     AccountType = "crypto"
	AccountCredit     AccountType = "credit"
	AccountLoan       AccountType = "loan"
	AccountProperty   AccountType = "property"
	AccountOther      AccountType = "other"
)

type (
	AccountType string

	// Currency is an ISO 4217 code, e.g. "USD".
	Currency string

	Date struct {
		time.Time
	}

	// User carries the per-owner settings the engine needs: the currency
	// every aggregate is reported in and the birth date age-triggered
	// events are evaluated against.
	User struct {
		ID           int64
		HomeCurrency Currency
		BirthDate    Date
	}

	Account struct {
		ID             int64
		UserID         int64
		Name           string
		Type           AccountType
		Currency       Currency
		InitialBalance decimal.Decimal
		CurrentBalance decimal.Decimal
		IsLiability    bool
		// InterestRate is annual; zero means no interest accrues.
		InterestRate decimal.Decimal
		// Compounding is how often interest posts (monthly, quarterly,
		// annually). Empty defaults to monthly.
		Compounding Frequency
		MonthlyFee  decimal.Decimal
	}
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNoRateAvailable = errors.New("no exchange rate available")
	ErrRunTimeout      = errors.New("simulation run timed out")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCurrency    = errors.New("empty currency")
)

// zeroDecimalCurrencies have no minor unit (amounts are whole numbers).
var zeroDecimalCurrencies = map[Currency]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

// MinorUnits returns the number of decimal places amounts in this
// currency are settled at.
func (c Currency) MinorUnits() int32 {
	if zeroDecimalCurrencies[c] {
		return 0
	}
	return 2
}

// RoundAmount rounds a computed value to the currency's minor unit.
// Intermediate arithmetic stays at full precision; rounding happens only
// when a value is materialized into a posting or a projection row.
func (c Currency) RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.MinorUnits())
}

func (c Currency) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return ErrEmptyCurrency
	}
	return nil
}

// NewDate creates a new Date from year, month, day (UTC midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty reports whether the date is unset (optional dates are zero).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// MonthStart returns the first day of the date's month.
func (d Date) MonthStart() Date {
	y, m, _ := d.Date()
	return Date{Time: time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)}
}

// AddMonths returns the date shifted by n months.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.AddDate(0, n, 0)}
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

// Format returns the date in YYYY-MM-DD form.
func (d Date) Format() string {
	return d.Time.Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero
// (unset) date with no error.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// AgeAt returns the user's age in whole years at the given date.
func (u User) AgeAt(d Date) int {
	if u.BirthDate.IsEmpty() {
		return 0
	}
	age := d.Year() - u.BirthDate.Year()
	if d.Month() < u.BirthDate.Month() ||
		(d.Month() == u.BirthDate.Month() && d.Day() < u.BirthDate.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if err := a.Currency.Validate(); err != nil {
		return err
	}
	switch a.Type {
	case AccountBank, AccountInvestment, AccountCrypto, AccountCredit,
		AccountLoan, AccountProperty, AccountOther:
	default:
		return errors.New("invalid account type")
	}
	return nil
}

// CompoundingOrDefault returns the account's compounding frequency,
// defaulting to monthly when unset.
func (a Account) CompoundingOrDefault() Frequency {
	if a.Compounding == "" {
		return Monthly
	}
	return a.Compounding
}
