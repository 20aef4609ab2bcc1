package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"budget/internal/config"
	"budget/internal/core"
	"budget/internal/storage"
)

func newGoalsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Long-term savings goals",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the goals and their total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			goals, err := store.ListGoals(cmd.Context())
			if err != nil {
				return err
			}
			f := a.formatter()
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "NAME\tAMOUNT\t")
			for _, g := range goals {
				fmt.Fprintf(tw, "%s\t%s\t\n", g.Name, f.Format(g.Amount))
			}
			fmt.Fprintf(tw, "Total\t%s\t\n", f.Format(core.GoalsTotal(goals)))
			return tw.Flush()
		},
	})
	return cmd
}

func newEventsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Ledger events recorded by the worker",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "Print the most recent recorded events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			evs, err := store.ListEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(evs) == 0 {
				a.printf("No events recorded\n")
				return nil
			}
			now := time.Now()
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tKIND\tENTRY\tNAME\tID")
			for _, e := range evs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					humanize.RelTime(e.OccurredAt, now, "ago", "from now"),
					e.Kind, e.Entry.ID, e.Entry.Name, e.ID)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "l", 20, "number of events to show")
	cmd.AddCommand(list)
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				dialect storage.Dialect
				dsn     string
			)
			switch a.cfg.DataBackend {
			case config.BackendSQLite:
				dialect, dsn = storage.SQLite, a.cfg.SQLiteDBPath
			case config.BackendPostgres:
				dialect, dsn = storage.Postgres, a.cfg.DatabaseURL
			default:
				return fmt.Errorf("backend %q has no migrations", a.cfg.DataBackend)
			}
			version, err := storage.RunMigrations(dialect, dsn)
			if err != nil {
				return err
			}
			a.printf("%s schema at version %d\n", dialect, version)
			return nil
		},
	}
}
