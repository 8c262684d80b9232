// Package services orchestrates simulation runs across storage, the
// projection engine and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"horizon/internal/amqp"
	"horizon/internal/core"
	"horizon/internal/engine"
	"horizon/internal/storage"
)

const defaultRunTimeout = 30 * time.Second

// SimulationService runs scenario projections and serves their results.
type SimulationService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	runTimeout time.Duration
	reference  core.Currency
}

func NewSimulationService(st *storage.SQLiteRepository, amqpClient *amqp.Client, runTimeout time.Duration, reference core.Currency) *SimulationService {
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	return &SimulationService{
		storage:    st,
		amqpClient: amqpClient,
		runTimeout: runTimeout,
		reference:  reference,
	}
}

// RunSimulation loads a consistent snapshot, computes the projection under
// the run timeout and commits the output atomically. Stored projections
// are untouched when the run fails.
func (s *SimulationService) RunSimulation(ctx context.Context, userID, scenarioID int64, recalcFromStart bool) (core.RunResult, error) {
	snap, err := s.loadSnapshot(ctx, userID, scenarioID)
	if err != nil {
		return core.RunResult{}, err
	}

	eng, err := engine.New(snap)
	if err != nil {
		return core.RunResult{}, fmt.Errorf("prepare engine: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	started := time.Now()
	out, err := eng.Run(runCtx, recalcFromStart)
	if err != nil {
		return core.RunResult{}, fmt.Errorf("run scenario %d: %w", scenarioID, err)
	}

	if err := s.storage.ReplaceProjections(ctx, scenarioID, out.AccountRows, out.NetWorthRows, out.Result.RanAt); err != nil {
		return core.RunResult{}, fmt.Errorf("commit run: %w", err)
	}

	slog.InfoContext(ctx, "Simulation completed",
		"scenario_id", scenarioID,
		"user_id", userID,
		"periods", out.Result.PeriodsComputed,
		"final_net_worth", out.Result.FinalNetWorth,
		"warnings", len(out.Result.Warnings),
		"duration", time.Since(started))

	return out.Result, nil
}

// EnqueueRun publishes a run request for asynchronous processing by the
// worker. Without a broker connection the request is dropped with a
// warning; callers can always fall back to a synchronous run.
func (s *SimulationService) EnqueueRun(ctx context.Context, userID, scenarioID int64, recalcFromStart bool) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping run request")
		return nil
	}
	return s.amqpClient.PublishRunRequest(ctx, amqp.NewRunRequestMessage(userID, scenarioID, recalcFromStart))
}

func (s *SimulationService) loadSnapshot(ctx context.Context, userID, scenarioID int64) (engine.Snapshot, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	scenario, err := s.storage.GetScenario(ctx, scenarioID, userID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	accounts, err := s.storage.ListAccounts(ctx, userID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	flows, err := s.storage.ListCashFlows(ctx, userID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	events, err := s.storage.ListScenarioEvents(ctx, scenarioID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	profiles, err := s.storage.TaxProfilesByID(ctx, userID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	rates, err := s.storage.RateTable(ctx, s.reference)
	if err != nil {
		return engine.Snapshot{}, err
	}

	return engine.Snapshot{
		Scenario:    scenario,
		User:        user,
		Accounts:    accounts,
		Flows:       flows,
		Events:      events,
		TaxProfiles: profiles,
		Rates:       rates,
	}, nil
}

// ProjectionQuery filters stored projection rows. Granularity is monthly
// by default; quarterly and annual downsample, anything finer than
// monthly falls back to monthly.
type ProjectionQuery struct {
	UserID      int64
	ScenarioID  int64
	AccountID   int64 // 0 means all accounts
	From        core.Date
	To          core.Date
	Granularity string
}

// granularityStep maps a requested granularity onto a period stride.
func granularityStep(ctx context.Context, granularity string) int {
	switch granularity {
	case "", "monthly":
		return 1
	case "quarterly":
		return 3
	case "annually":
		return 12
	default:
		slog.WarnContext(ctx, "Unsupported granularity, serving monthly", "granularity", granularity)
		return 1
	}
}

// GetProjections returns per-account projection rows for a scenario the
// user owns, filtered by period range and downsampled to the requested
// granularity.
func (s *SimulationService) GetProjections(ctx context.Context, q ProjectionQuery) ([]core.AccountProjection, error) {
	if _, err := s.storage.GetScenario(ctx, q.ScenarioID, q.UserID); err != nil {
		return nil, err
	}
	rows, err := s.storage.AccountProjections(ctx, q.ScenarioID)
	if err != nil {
		return nil, err
	}

	step := granularityStep(ctx, q.Granularity)
	var filtered []core.AccountProjection
	for _, row := range rows {
		if q.AccountID != 0 && row.AccountID != q.AccountID {
			continue
		}
		if !inRange(row.Period, q.From, q.To) {
			continue
		}
		if step > 1 && !onStride(rows[0].Period, row.Period, step) {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered, nil
}

// GetNetWorth returns the net-worth series for a scenario the user owns.
func (s *SimulationService) GetNetWorth(ctx context.Context, q ProjectionQuery) ([]core.NetWorthProjection, error) {
	if _, err := s.storage.GetScenario(ctx, q.ScenarioID, q.UserID); err != nil {
		return nil, err
	}
	rows, err := s.storage.NetWorthProjections(ctx, q.ScenarioID)
	if err != nil {
		return nil, err
	}

	step := granularityStep(ctx, q.Granularity)
	var filtered []core.NetWorthProjection
	for _, row := range rows {
		if !inRange(row.Period, q.From, q.To) {
			continue
		}
		if step > 1 && !onStride(rows[0].Period, row.Period, step) {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered, nil
}

func inRange(period, from, to core.Date) bool {
	if !from.IsEmpty() && period.Before(from.MonthStart().Time) {
		return false
	}
	if !to.IsEmpty() && period.After(to.Time) {
		return false
	}
	return true
}

// onStride keeps every step-th period counted from the series start.
func onStride(first, period core.Date, step int) bool {
	gap := (period.Year()-first.Year())*12 + int(period.Month()) - int(first.Month())
	return gap%step == 0
}

// Close releases storage and broker connections.
func (s *SimulationService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close simulation service: %v", errs)
	}
	return nil
}
