package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"moneymap/internal/config"
	applog "moneymap/internal/log"
	"moneymap/internal/scheduler"
	"moneymap/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	processor := scheduler.NewProcessor(store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One pass immediately on startup, then on every tick. Each owner's
	// catch-up is independent, so owners run concurrently.
	runPass := func(ctx context.Context) {
		started := time.Now()
		owners, err := store.Queries().ListOwnerIDs(ctx)
		if err != nil {
			logger.Error("Failed to list owners", applog.FieldError, err)
			return
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for _, ownerID := range owners {
			ownerID := ownerID
			g.Go(func() error {
				created, err := processor.ProcessOwner(gctx, ownerID)
				if err != nil {
					logger.Error("Recurrence pass failed",
						applog.FieldOwnerID, ownerID,
						applog.FieldError, err)
					return nil // one owner failing must not stop the others
				}
				if len(created) > 0 {
					logger.Info("Recurrence pass complete",
						applog.FieldOwnerID, ownerID,
						applog.FieldCount, len(created))
				}
				return nil
			})
		}
		_ = g.Wait()
		logger.Info("Pass finished",
			applog.FieldCount, len(owners),
			applog.FieldDuration, time.Since(started).Milliseconds())
	}

	runPass(ctx)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runPass(ctx)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())
	cancel()

	logger.Info("Worker shutdown complete")
}
