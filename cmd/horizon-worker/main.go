package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"horizon/internal/config"
	"horizon/internal/core"
	"horizon/internal/export"
	gsheet "horizon/internal/export/google"
	applog "horizon/internal/log"
	"horizon/internal/services"
	"horizon/internal/storage"
	"horizon/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.Setup(os.Getenv("LOG_LEVEL"))

	logger.Info("Starting horizon-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Sheets export is optional; runs still persist without it.
	var writer export.ProjectionWriter
	if cfg.ExportEnabled {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled")
	}

	service := services.NewSimulationService(repo, nil, cfg.RunTimeout, core.Currency(cfg.ReferenceCurrency))
	runWorker := worker.NewRunWorker(repo, service, writer, cfg.MaxConcurrentRuns)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Consuming run requests",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"max_concurrent", cfg.MaxConcurrentRuns,
		"baseline_schedule", cfg.BaselineSchedule)

	err = runWorker.Start(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.BaselineSchedule)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
