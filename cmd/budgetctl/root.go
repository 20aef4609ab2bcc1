package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/storage"
)

// app carries what the subcommands share. Tests preset cfg and store.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	store     storage.Store
	ownsStore bool
	out       io.Writer
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&app{})
}

func newRootCmdWith(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "budgetctl",
		Short:        "Inspect and edit the period budget",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.AddCommand(
		newEntriesCmd(a),
		newGoalsCmd(a),
		newEventsCmd(a),
		newMigrateCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	if a.cfg == nil {
		cli.LoadEnvFile()
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.logger == nil {
		level, err := log.ParseLevel(a.cfg.LogLevel)
		if err != nil {
			return err
		}
		lc := log.DefaultConfig()
		lc.Level = level
		lc.Format = a.cfg.LogFormat
		lc.Filter = a.cfg.LogFilter
		lc.Component = log.ComponentCLI
		// stdout carries command output
		lc.Output = cmd.ErrOrStderr()
		a.logger = log.New(lc)
	}
	return nil
}

func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := backend.OpenStore(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = s
	a.ownsStore = true
	return s, nil
}

func (a *app) close() error {
	if a.ownsStore && a.store != nil {
		err := a.store.Close()
		a.store = nil
		a.ownsStore = false
		return err
	}
	return nil
}

func (a *app) formatter() core.CurrencyFormatter {
	return core.CurrencyFormatter{Symbol: a.cfg.CurrencySymbol}
}

// budget loads a BudgetService over the store. Changes made through it are
// published like the server's when an events backend is configured.
func (a *app) budget(ctx context.Context) (*services.BudgetService, func(), error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	var publisher events.Publisher = events.Nop{}
	if a.cfg.EventsBackend != config.EventsNone && a.cfg.EventsBackend != "" {
		publisher = backend.OpenPublisher(ctx, a.cfg, a.logger)
	}
	svc := services.NewBudgetService(store,
		services.WithIDGenerator(ledger.NewIDGenerator(a.cfg.IDScheme)),
		services.WithFormatter(a.formatter()),
		services.WithPublisher(publisher),
		services.WithLogger(a.logger),
	)
	if err := svc.Load(ctx); err != nil {
		_ = publisher.Close()
		return nil, nil, err
	}
	return svc, func() {
		if err := publisher.Close(); err != nil {
			a.logger.Warn("Failed to close publisher", log.FieldError, err)
		}
	}, nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
