// Package memory is an in-process projection writer used in development
// and tests when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"horizon/internal/core"
)

type Store struct {
	mu   sync.Mutex
	rows map[string][]core.NetWorthProjection
}

func New() *Store {
	return &Store{rows: map[string][]core.NetWorthProjection{}}
}

// WriteNetWorth replaces the stored series for the scenario.
func (s *Store) WriteNetWorth(_ context.Context, scenarioName string, rows []core.NetWorthProjection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[scenarioName] = append([]core.NetWorthProjection(nil), rows...)
	return nil
}

// Rows returns the last written series for a scenario.
func (s *Store) Rows(scenarioName string) []core.NetWorthProjection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.NetWorthProjection(nil), s.rows[scenarioName]...)
}
