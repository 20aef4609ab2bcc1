package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"budget/internal/core"
	"budget/internal/storage/memory"
)

func newEntriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"entry", "e"},
		Short:   "List, add, remove or export budget entries",
	}
	cmd.AddCommand(
		newEntriesListCmd(a),
		newEntriesAddCmd(a),
		newEntriesRemoveCmd(a),
		newEntriesExportCmd(a),
	)
	return cmd
}

func newEntriesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the entries and the period totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, done, err := a.budget(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			f := a.formatter()
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "ID\tNAME\tAMOUNT\tTYPE\t")
			for _, e := range svc.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", e.ID, e.Name, f.Format(e.Amount), e.Type)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			sum := svc.Summary()
			a.printf("\nIncome:  %s\nExpense: %s\nBalance: %s\n",
				f.Format(sum.Income), f.Format(sum.Expense), f.Format(sum.Balance))
			return nil
		},
	}
}

func newEntriesAddCmd(a *app) *cobra.Command {
	var name, amount string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an expense",
		Example: `  budgetctl entries add --name "Jídlo" --amount "1 200,50"
  budgetctl entries add --name Kino --amount 250+180`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, done, err := a.budget(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			e, err := svc.Add(cmd.Context(), core.Candidate{Name: name, Amount: core.ParseAmount(amount)})
			if err != nil {
				return err
			}
			a.printf("Added %s (%s, %s)\n", e.ID, e.Name, a.formatter().Format(e.Amount))
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "entry name")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "amount, e.g. 1200, \"1 200,50\" or 1000+200")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newEntriesRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an entry by id",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.budget(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := svc.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("Removed %s\n", args[0])
			return nil
		},
	}
}

func newEntriesExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write entries and goals as a TOML seed file",
		Long:  "Write entries and goals as a TOML document that SEED_FILE accepts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			stored, err := store.ListEntries(cmd.Context())
			if err != nil {
				return err
			}
			goals, err := store.ListGoals(cmd.Context())
			if err != nil {
				return err
			}
			entries := make([]core.Entry, 0, len(stored))
			for _, e := range stored {
				entries = append(entries, e.Entry)
			}

			data, err := memory.SeedFrom(entries, goals).Encode()
			if err != nil {
				return fmt.Errorf("encode seed: %w", err)
			}
			if output == "" || output == "-" {
				_, err = a.out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write seed: %w", err)
			}
			a.printf("Exported %d entries and %d goals to %s\n", len(entries), len(goals), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "file to write, - for stdout")
	return cmd
}
