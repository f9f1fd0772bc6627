package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneymap/internal/config"
	"moneymap/internal/core"
	"moneymap/internal/events"
	"moneymap/internal/export"
	applog "moneymap/internal/log"
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

	logger.Info("Starting export-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the export worker")
		os.Exit(1)
	}

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mirror, err := export.NewSheetsMirror(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
	if err != nil {
		logger.Error("Failed to initialize Sheets mirror", applog.FieldError, err)
		os.Exit(1)
	}

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	handler := func(event *events.LedgerEvent) error {
		// Deletions are not mirrored; the sheet is an append-only journal.
		if event.Action != events.ActionCreated {
			return nil
		}

		hctx, hcancel := context.WithTimeout(ctx, 30*time.Second)
		defer hcancel()

		t, err := store.Queries().GetTransaction(hctx, event.TransactionID)
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before we got to it; nothing to mirror.
			return nil
		}
		if err != nil {
			return err
		}

		var accountName, categoryName string
		if account, err := store.Queries().GetAccount(hctx, t.AccountID); err == nil {
			accountName = account.Name
		}
		if t.CategoryID != "" {
			if category, err := store.Queries().GetCategory(hctx, t.CategoryID); err == nil {
				categoryName = category.Name
			}
		}

		_, err = mirror.AppendTransaction(hctx, t, accountName, categoryName)
		return err
	}

	go func() {
		if err := client.ConsumeLedgerEvents(ctx, handler); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", applog.FieldError, err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}
	cancel()

	logger.Info("Worker shutdown complete")
}
