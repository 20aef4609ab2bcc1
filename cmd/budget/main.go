package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/core"
	apphttp "budget/internal/http"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "budget:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, logger, err := cli.Bootstrap(log.ComponentApp)
	if err != nil {
		return err
	}

	ctx, stop := cli.GracefulShutdown(context.Background(), logger)
	defer stop()

	store, err := backend.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher := backend.OpenPublisher(ctx, cfg, logger)
	defer publisher.Close()

	formatter := core.CurrencyFormatter{Symbol: cfg.CurrencySymbol}
	budget := services.NewBudgetService(store,
		services.WithIDGenerator(ledger.NewIDGenerator(cfg.IDScheme)),
		services.WithFormatter(formatter),
		services.WithPublisher(publisher),
		services.WithLogger(logger),
	)
	if err := budget.Load(ctx); err != nil {
		return err
	}
	goals := services.NewGoalService(store, cfg.GoalsCacheTTL, logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Budget:             budget,
		Goals:              goals,
		Store:              store,
		Formatter:          formatter,
		Logger:             logger,
		Backend:            cfg.DataBackend,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budget server",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"events", cfg.EventsBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext(cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
