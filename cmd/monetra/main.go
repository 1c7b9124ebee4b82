package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"monetra/internal/amqp"
	"monetra/internal/config"
	"monetra/internal/core"
	"monetra/internal/currency"
	apphttp "monetra/internal/http"
	"monetra/internal/ledger"
	applog "monetra/internal/log"
	"monetra/internal/settings"
	"monetra/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

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

	// The sync tier is best effort: without a broker the ledger still works,
	// mutations just stop mirroring.
	var syncer ledger.Syncer
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without sync", "error", err)
		} else {
			defer amqpClient.Close()
			syncer = amqpClient
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	led := ledger.New(repo, syncer, cfg.BaseCurrency)
	if err := led.Load(ctx); err != nil {
		logger.Error("Failed to load transactions", "error", err)
		os.Exit(1)
	}

	settingsStore := settings.NewStore(repo)
	current := settingsStore.Load(ctx)

	var source currency.RateSource
	if cfg.RatesEndpoint != "" {
		source = currency.NewHTTPSource(cfg.RatesEndpoint)
	} else {
		source = currency.NewStaticSource()
	}
	rates := currency.NewRateService(source)
	if err := rates.LoadRates(ctx, cfg.BaseCurrency); err != nil {
		logger.Warn("Initial rate load failed, conversions pass through", "error", err, "base", cfg.BaseCurrency)
	}

	// Changing the display currency re-anchors the rate table, matching how
	// rates are fetched per base.
	settingsStore.OnChange(func(s core.AppSettings) {
		if err := rates.LoadRates(ctx, s.Currency); err != nil {
			logger.Warn("Rate refresh on currency change failed", "error", err, "currency", s.Currency)
		}
	})
	logger.Info("Settings loaded", "currency", current.Currency)

	srv := apphttp.NewServer(":"+cfg.Port, led, settingsStore, rates)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting monetra server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.RatesInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				base := settingsStore.Settings().Currency
				if err := rates.LoadRates(gctx, base); err != nil {
					logger.Warn("Periodic rate refresh failed", "error", err, "base", base)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
