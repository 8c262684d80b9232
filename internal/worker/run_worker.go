// Package worker executes queued simulation runs and the periodic
// baseline refresh.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"horizon/internal/amqp"
	"horizon/internal/export"
	"horizon/internal/services"
	"horizon/internal/storage"
)

// RunWorker consumes run requests and re-runs baseline scenarios on a
// schedule so stored projections never drift far from current data.
type RunWorker struct {
	storage       *storage.SQLiteRepository
	service       *services.SimulationService
	writer        export.ProjectionWriter
	maxConcurrent int
}

func NewRunWorker(st *storage.SQLiteRepository, service *services.SimulationService, writer export.ProjectionWriter, maxConcurrent int) *RunWorker {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &RunWorker{
		storage:       st,
		service:       service,
		writer:        writer,
		maxConcurrent: maxConcurrent,
	}
}

// HandleRunRequest processes one queued run. A returned error requeues
// the message, so permanent failures (unknown scenario) are swallowed
// after logging.
func (w *RunWorker) HandleRunRequest(ctx context.Context, msg *amqp.RunRequestMessage) error {
	slog.InfoContext(ctx, "Processing run request",
		"user_id", msg.UserID,
		"scenario_id", msg.ScenarioID,
		"requested_at", msg.RequestedAt)

	result, err := w.service.RunSimulation(ctx, msg.UserID, msg.ScenarioID, msg.RecalcFromStart)
	if err != nil {
		return fmt.Errorf("run scenario %d for user %d: %w", msg.ScenarioID, msg.UserID, err)
	}

	w.exportRun(ctx, msg.UserID, msg.ScenarioID)

	slog.InfoContext(ctx, "Run request completed",
		"scenario_id", msg.ScenarioID,
		"periods", result.PeriodsComputed,
		"final_net_worth", result.FinalNetWorth)
	return nil
}

// RunBaselines re-runs every baseline scenario with bounded concurrency.
// One failing scenario does not stop the others; the first error is
// reported after all runs finish.
func (w *RunWorker) RunBaselines(ctx context.Context) error {
	baselines, err := w.storage.ListBaselineScenarios(ctx)
	if err != nil {
		return fmt.Errorf("list baseline scenarios: %w", err)
	}
	if len(baselines) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Re-running baseline scenarios",
		"count", len(baselines),
		"max_concurrent", w.maxConcurrent)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.maxConcurrent)

	var mu sync.Mutex
	var firstErr error
	for _, scenario := range baselines {
		scenario := scenario
		g.Go(func() error {
			_, err := w.service.RunSimulation(gctx, scenario.UserID, scenario.ID, false)
			if err != nil {
				slog.ErrorContext(gctx, "Baseline re-run failed",
					"scenario_id", scenario.ID,
					"user_id", scenario.UserID,
					"error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			w.exportRun(gctx, scenario.UserID, scenario.ID)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return firstErr
}

// exportRun pushes the freshly stored net-worth series to the configured
// writer. Export failures are logged, never propagated: the run itself
// already committed.
func (w *RunWorker) exportRun(ctx context.Context, userID, scenarioID int64) {
	if w.writer == nil {
		return
	}

	scenario, err := w.storage.GetScenario(ctx, scenarioID, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Export skipped, scenario unreadable", "scenario_id", scenarioID, "error", err)
		return
	}
	rows, err := w.service.GetNetWorth(ctx, services.ProjectionQuery{UserID: userID, ScenarioID: scenarioID})
	if err != nil {
		slog.ErrorContext(ctx, "Export skipped, projections unreadable", "scenario_id", scenarioID, "error", err)
		return
	}
	if err := w.writer.WriteNetWorth(ctx, scenario.Name, rows); err != nil {
		slog.ErrorContext(ctx, "Net worth export failed", "scenario_id", scenarioID, "error", err)
	}
}

// Start consumes run requests until the context is cancelled, firing the
// baseline refresh on the given cron schedule (empty disables it).
func (w *RunWorker) Start(ctx context.Context, amqpURL, exchangeName, queueName, baselineSchedule string) error {
	if baselineSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(baselineSchedule, func() {
			if err := w.RunBaselines(ctx); err != nil {
				slog.ErrorContext(ctx, "Scheduled baseline refresh failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid baseline schedule %q: %w", baselineSchedule, err)
		}
		c.Start()
		defer c.Stop()
		slog.InfoContext(ctx, "Baseline refresh scheduled", "schedule", baselineSchedule)
	}

	return amqp.ConsumeForever(ctx, amqpURL, exchangeName, queueName, func(msg *amqp.RunRequestMessage) error {
		return w.HandleRunRequest(ctx, msg)
	})
}
