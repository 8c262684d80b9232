// Package fx resolves conversion rates from a snapshot of observed
// currency-pair rates.
//
// Resolution order, first hit wins: most recent direct observation,
// inverted reverse observation, then a single-hop cross rate through a
// reference currency. A pair with no path resolves to rate 1 tagged
// "none" so callers can surface the data-quality problem instead of
// silently assuming parity.
package fx

import (
	"time"

	"github.com/shopspring/decimal"

	"horizon/internal/core"
)

const (
	ProvenanceDirect     = "direct"
	ProvenanceInverse    = "inverse"
	ProvenanceCalculated = "calculated"
	ProvenanceNone       = "none"
)

// DefaultReference is the pivot currency for cross rates.
const DefaultReference = core.Currency("USD")

type (
	// Observation is one stored market rate: 1 Base = Rate Quote.
	Observation struct {
		Base       core.Currency
		Quote      core.Currency
		Rate       decimal.Decimal
		ObservedAt time.Time
		Source     string
	}

	// Resolution is a resolved rate with its provenance. For calculated
	// cross rates ObservedAt is the resolution time, not either leg's
	// observation time.
	Resolution struct {
		Rate       decimal.Decimal
		ObservedAt time.Time
		Provenance string
	}

	// Table is an immutable rate snapshot. Runs load one Table up front so
	// rates cannot shift mid-run.
	Table struct {
		reference core.Currency
		// latest observation per base per quote
		rates map[core.Currency]map[core.Currency]Observation
	}
)

// NewTable indexes observations, keeping only the most recent per pair.
// An empty reference falls back to DefaultReference.
func NewTable(observations []Observation, reference core.Currency) *Table {
	if reference == "" {
		reference = DefaultReference
	}
	t := &Table{
		reference: reference,
		rates:     make(map[core.Currency]map[core.Currency]Observation),
	}
	for _, obs := range observations {
		if obs.Rate.IsZero() || obs.Rate.IsNegative() {
			continue
		}
		byQuote, ok := t.rates[obs.Base]
		if !ok {
			byQuote = make(map[core.Currency]Observation)
			t.rates[obs.Base] = byQuote
		}
		current, exists := byQuote[obs.Quote]
		if !exists || obs.ObservedAt.After(current.ObservedAt) {
			byQuote[obs.Quote] = obs
		}
	}
	return t
}

// Reference returns the cross-rate pivot currency.
func (t *Table) Reference() core.Currency {
	return t.reference
}

// Resolve finds the conversion rate from base to quote as of the given
// time. Identical currencies resolve to 1 with direct provenance.
func (t *Table) Resolve(base, quote core.Currency, asOf time.Time) Resolution {
	one := decimal.NewFromInt(1)
	if base == quote {
		return Resolution{Rate: one, ObservedAt: asOf, Provenance: ProvenanceDirect}
	}

	if obs, ok := t.lookup(base, quote); ok {
		return Resolution{Rate: obs.Rate, ObservedAt: obs.ObservedAt, Provenance: ProvenanceDirect}
	}

	if obs, ok := t.lookup(quote, base); ok {
		return Resolution{Rate: one.Div(obs.Rate), ObservedAt: obs.ObservedAt, Provenance: ProvenanceInverse}
	}

	// Single hop through the reference currency, each leg itself either
	// direct or inverted.
	if base != t.reference && quote != t.reference {
		toRef, okTo := t.legRate(base, t.reference)
		fromRef, okFrom := t.legRate(t.reference, quote)
		if okTo && okFrom {
			return Resolution{
				Rate:       toRef.Mul(fromRef),
				ObservedAt: asOf,
				Provenance: ProvenanceCalculated,
			}
		}
	}

	return Resolution{Rate: one, ObservedAt: asOf, Provenance: ProvenanceNone}
}

// Convert applies the resolved rate to an amount. The Resolution is
// returned alongside so callers can record provenance on projection rows.
func (t *Table) Convert(amount decimal.Decimal, base, quote core.Currency, asOf time.Time) (decimal.Decimal, Resolution) {
	res := t.Resolve(base, quote, asOf)
	return amount.Mul(res.Rate), res
}

func (t *Table) lookup(base, quote core.Currency) (Observation, bool) {
	byQuote, ok := t.rates[base]
	if !ok {
		return Observation{}, false
	}
	obs, ok := byQuote[quote]
	return obs, ok
}

// legRate resolves one cross-rate leg, trying direct then inverse.
func (t *Table) legRate(base, quote core.Currency) (decimal.Decimal, bool) {
	if obs, ok := t.lookup(base, quote); ok {
		return obs.Rate, true
	}
	if obs, ok := t.lookup(quote, base); ok {
		return decimal.NewFromInt(1).Div(obs.Rate), true
	}
	return decimal.Zero, false
}
