package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"monetra/internal/amqp"
	"monetra/internal/config"
	applog "monetra/internal/log"
	"monetra/internal/sheets"
	gsheet "monetra/internal/sheets/google"
	mem "monetra/internal/sheets/memory"
	"monetra/internal/storage"
	"monetra/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting monetra-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Mirror target: Google Sheets when configured, otherwise an in-process
	// store so the consume loop still drains the queue in development.
	var (
		writer  sheets.TransactionWriter
		deleter sheets.TransactionDeleter
	)
	if cfg.GoogleSpreadsheetID != "" {
		cli, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer, deleter = cli, cli
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		store := mem.New()
		writer, deleter = store, store
		logger.Info("No GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncWorker := worker.NewSyncWorker(repo, writer, deleter)

	consumeDone := make(chan error, 1)
	go func() {
		consumeDone <- amqpClient.ConsumeSync(ctx, func(msg *amqp.SyncMessage) error {
			return syncWorker.HandleMessage(ctx, msg)
		})
	}()

	select {
	case err := <-consumeDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		// Give the in-flight message a moment to finish before closing the
		// channel underneath it.
		select {
		case <-consumeDone:
		case <-time.After(5 * time.Second):
			logger.Warn("Shutdown timeout reached")
		}
	}
	logger.Info("Worker stopped")
}
