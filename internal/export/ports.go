// Package export defines the outbound port for publishing finished
// projection runs to external destinations.
package export

import (
	"context"

	"horizon/internal/core"
)

// ProjectionWriter receives a completed run's net-worth series. Exports
// are best-effort: a failed export never invalidates the stored run.
type ProjectionWriter interface {
	WriteNetWorth(ctx context.Context, scenarioName string, rows []core.NetWorthProjection) error
}
