package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/monikanaramsetti/spendwise/internal/bus"
	"github.com/monikanaramsetti/spendwise/internal/config"
	apphttp "github.com/monikanaramsetti/spendwise/internal/http"
	"github.com/monikanaramsetti/spendwise/internal/ledger"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/remote"
	"github.com/monikanaramsetti/spendwise/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	persistent, err := storage.NewSQLiteTier(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open persistent storage",
			applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer persistent.Close()
	session := storage.NewSessionTier()

	opts := apphttp.Options{
		Logger:          logger,
		ReportCacheSize: cfg.ReportCacheSize,
		ReportCacheTTL:  cfg.ReportCacheTTL,
	}
	storeOpts := []ledger.Option{ledger.WithLogger(logger)}

	if cfg.RemoteEnabled() {
		remoteClient := remote.New(cfg.RemoteConfig(), logger)
		opts.Auth = remoteClient
		storeOpts = append(storeOpts, ledger.WithProfileSyncer(remoteClient))
		logger.Info("Remote collaborator configured", "base_url", cfg.RemoteBaseURL)
	} else {
		logger.Info("No remote server configured, running local-only")
	}

	if cfg.AMQPEnabled() {
		busClient, err := bus.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer busClient.Close()
		opts.Publisher = busClient
		storeOpts = append(storeOpts, ledger.WithPublisher(busClient))
		logger.Info("Sync events configured", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Sync events disabled - no AMQP_URL provided")
	}

	store := ledger.New(persistent, session, storeOpts...)
	if resumed, err := store.Resume(context.Background()); err != nil {
		logger.Warn("Session resume failed", applog.FieldError, err)
	} else if resumed {
		logger.Info("Session resumed", applog.FieldUserID, store.Identity().UserID)
	}

	srv := apphttp.NewServer(":"+cfg.Port, store, opts)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting spendwise server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
