package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/sheets"
	gsheet "budget/internal/sheets/google"
	"budget/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "budget-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, logger, err := cli.Bootstrap(log.ComponentWorker)
	if err != nil {
		return err
	}
	logger.Info("Starting budget-worker", "events", cfg.EventsBackend)

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend selected, recorded events are lost on exit")
	}

	ctx, stop := cli.GracefulShutdown(context.Background(), logger)
	defer stop()

	store, err := backend.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	consumer, err := backend.OpenConsumer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var mirror sheets.EntryMirror
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
			Logger:          logger,
		})
		if err != nil {
			_ = consumer.Close()
			return fmt.Errorf("initialize Google Sheets client: %w", err)
		}
		mirror = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewEventWorker(store, mirror, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, consumer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")
		return consumer.Close()
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Worker shutdown complete")
	return nil
}
