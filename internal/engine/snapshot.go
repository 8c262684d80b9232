package engine

import (
	"fmt"
	"sort"

	"horizon/internal/core"
	"horizon/internal/fx"
)

// Snapshot is everything one run reads: the scenario and its events, the
// owner's accounts, cash-flow definitions, tax profiles and an FX table.
// It is assembled once before the first period and never refreshed
// mid-run, so rates and brackets are stable for the whole projection.
type Snapshot struct {
	Scenario    core.Scenario
	User        core.User
	Accounts    []core.Account
	Flows       []core.CashFlow
	Events      []core.ScenarioEvent
	TaxProfiles map[int64]core.TaxProfile
	Rates       *fx.Table
}

// normalize sorts accounts, flows and events by ID so period processing
// is deterministic and re-runs produce byte-identical rows.
func (s *Snapshot) normalize() {
	sort.Slice(s.Accounts, func(i, j int) bool { return s.Accounts[i].ID < s.Accounts[j].ID })
	sort.Slice(s.Flows, func(i, j int) bool { return s.Flows[i].ID < s.Flows[j].ID })
	sort.Slice(s.Events, func(i, j int) bool { return s.Events[i].ID < s.Events[j].ID })
	if s.Rates == nil {
		s.Rates = fx.NewTable(nil, "")
	}
	if s.TaxProfiles == nil {
		s.TaxProfiles = map[int64]core.TaxProfile{}
	}
}

// validate rejects snapshots the engine must not run: a scenario without a
// start date, or a flow pointing at an account outside the snapshot. The
// latter is the not-found class and aborts before any row is produced.
func (s *Snapshot) validate() error {
	if err := s.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario %d: %w", s.Scenario.ID, err)
	}

	known := make(map[int64]bool, len(s.Accounts))
	for _, acc := range s.Accounts {
		known[acc.ID] = true
	}

	for _, flow := range s.Flows {
		if flow.AccountID != 0 && !known[flow.AccountID] {
			return fmt.Errorf("flow %d references account %d: %w", flow.ID, flow.AccountID, core.ErrNotFound)
		}
		if flow.TargetAccountID != 0 && !known[flow.TargetAccountID] {
			return fmt.Errorf("flow %d references target account %d: %w", flow.ID, flow.TargetAccountID, core.ErrNotFound)
		}
	}
	for _, ev := range s.Events {
		if ev.AccountID != 0 && !known[ev.AccountID] {
			return fmt.Errorf("event %d references account %d: %w", ev.ID, ev.AccountID, core.ErrNotFound)
		}
	}
	return nil
}

func (s *Snapshot) account(id int64) *core.Account {
	for i := range s.Accounts {
		if s.Accounts[i].ID == id {
			return &s.Accounts[i]
		}
	}
	return nil
}
