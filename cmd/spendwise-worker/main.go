package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/monikanaramsetti/spendwise/internal/bus"
	"github.com/monikanaramsetti/spendwise/internal/config"
	"github.com/monikanaramsetti/spendwise/internal/export"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/remote"
	"github.com/monikanaramsetti/spendwise/internal/storage"
	"github.com/monikanaramsetti/spendwise/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting spendwise-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if !cfg.RemoteEnabled() {
		logger.Error("REMOTE_BASE_URL is required: the worker pushes state to the collaborator server")
		os.Exit(1)
	}
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required: the worker consumes sync messages")
		os.Exit(1)
	}

	tier, err := storage.NewSQLiteTier(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open persistent storage",
			applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer tier.Close()

	remoteClient := remote.New(cfg.RemoteConfig(), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var exporter worker.ReportExporter
	if exportCfg := cfg.ExportConfig(); exportCfg.Enabled() {
		sheets, err := export.New(ctx, exportCfg, logger)
		if err != nil {
			logger.Error("Failed to initialize report exporter", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = sheets
		logger.Info("Report export configured", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Report export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	busClient, err := bus.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer busClient.Close()

	syncWorker := worker.NewSyncWorker(tier, remoteClient, exporter, logger)

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"report_interval", cfg.ReportInterval.String())
	if err := syncWorker.Run(ctx, busClient, cfg.ReportInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
