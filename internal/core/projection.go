package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// AccountProjection is one persisted (scenario, account, period) row:
	// the period's closing balance in the account's own currency and the
	// owner's home currency, plus the movements that produced it.
	AccountProjection struct {
		ScenarioID   int64
		AccountID    int64
		Period       Date
		Balance      decimal.Decimal
		BalanceHome  decimal.Decimal
		Income       decimal.Decimal
		Expenses     decimal.Decimal
		Interest     decimal.Decimal
		TransfersIn  decimal.Decimal
		TransfersOut decimal.Decimal
		FXRate       decimal.Decimal
		FXProvenance string
		EventIDs     []int64
	}

	// NetWorthProjection aggregates all accounts for one (scenario,
	// period): totals plus breakdowns by account type and currency, all in
	// home currency.
	NetWorthProjection struct {
		ScenarioID       int64
		Period           Date
		TotalAssets      decimal.Decimal
		TotalLiabilities decimal.Decimal
		NetWorth         decimal.Decimal
		ByType           map[string]decimal.Decimal
		ByCurrency       map[string]decimal.Decimal
	}

	// RunResult summarizes one completed simulation run.
	RunResult struct {
		ScenarioID      int64
		PeriodsComputed int
		FinalNetWorth   decimal.Decimal
		HomeCurrency    Currency
		Warnings        []string
		SkippedFlows    []int64
		RanAt           time.Time
	}
)
