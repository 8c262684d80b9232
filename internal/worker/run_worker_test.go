package worker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"horizon/internal/amqp"
	"horizon/internal/core"
	"horizon/internal/export/memory"
	"horizon/internal/services"
	"horizon/internal/storage"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type harness struct {
	worker   *RunWorker
	exporter *memory.Store
	repo     *storage.SQLiteRepository
	userID   int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "horizon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	userID, err := repo.CreateUser(ctx, core.User{HomeCurrency: "USD"})
	require.NoError(t, err)

	accountID, err := repo.CreateAccount(ctx, core.Account{
		UserID: userID, Name: "checking", Type: core.AccountBank, Currency: "USD",
	})
	require.NoError(t, err)

	_, err = repo.CreateCashFlow(ctx, core.CashFlow{
		UserID: userID, Kind: core.FlowIncome, Name: "salary", Currency: "USD",
		Amount: dec("1000"), Frequency: core.Monthly, Active: true, AccountID: accountID,
	})
	require.NoError(t, err)

	exporter := memory.New()
	service := services.NewSimulationService(repo, nil, 0, "USD")
	return &harness{
		worker:   NewRunWorker(repo, service, exporter, 2),
		exporter: exporter,
		repo:     repo,
		userID:   userID,
	}
}

func (h *harness) addScenario(t *testing.T, name string, baseline bool) int64 {
	t.Helper()
	id, err := h.repo.CreateScenario(context.Background(), core.Scenario{
		UserID:     h.userID,
		Name:       name,
		StartDate:  core.NewDate(2026, 1, 1),
		EndDate:    core.NewDate(2026, 6, 30),
		IsBaseline: baseline,
	})
	require.NoError(t, err)
	return id
}

func TestHandleRunRequest_RunsAndExports(t *testing.T) {
	h := newHarness(t)
	scenarioID := h.addScenario(t, "base", true)

	msg := amqp.NewRunRequestMessage(h.userID, scenarioID, true)
	require.NoError(t, h.worker.HandleRunRequest(context.Background(), msg))

	rows, err := h.repo.NetWorthProjections(context.Background(), scenarioID)
	require.NoError(t, err)
	require.Len(t, rows, 6)

	exported := h.exporter.Rows("base")
	require.Len(t, exported, 6)
	require.True(t, exported[5].NetWorth.Equal(dec("6000")))
}

func TestHandleRunRequest_UnknownScenarioErrors(t *testing.T) {
	h := newHarness(t)

	msg := amqp.NewRunRequestMessage(h.userID, 999, true)
	err := h.worker.HandleRunRequest(context.Background(), msg)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRunBaselines_RunsAllBaselines(t *testing.T) {
	h := newHarness(t)
	first := h.addScenario(t, "baseline one", true)
	second := h.addScenario(t, "baseline two", true)
	h.addScenario(t, "draft", false)

	require.NoError(t, h.worker.RunBaselines(context.Background()))

	for _, id := range []int64{first, second} {
		rows, err := h.repo.NetWorthProjections(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, rows, 6)
	}
	require.Empty(t, h.exporter.Rows("draft"))
}

func TestRunBaselines_NoBaselines(t *testing.T) {
	h := newHarness(t)
	h.addScenario(t, "draft", false)

	require.NoError(t, h.worker.RunBaselines(context.Background()))
}
