package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"brokerage_site/internal/app"
	"brokerage_site/internal/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Seed every entity that has not been seeded yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := seeder.SeedAll(cmd.Context())
		if errors.Is(err, domain.ErrSeedBusy) {
			return fmt.Errorf("another seed run holds the lock; retry later or run 'seed unlock'")
		}
		printReport(cmd.OutOrStdout(), rep)
		return err
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear seed flags and seed again",
	RunE: func(cmd *cobra.Command, args []string) error {
		clean, _ := cmd.Flags().GetBool("clean")
		rep, err := seeder.ForceReseed(cmd.Context(), clean)
		if errors.Is(err, domain.ErrSeedBusy) {
			return fmt.Errorf("another seed run holds the lock; retry later or run 'seed unlock'")
		}
		printReport(cmd.OutOrStdout(), rep)
		return err
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-entity seed state and the lock holder",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := seeder.Status(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, st)
		}
		fmt.Fprintln(out, "Seed status")
		for _, e := range st.Entities {
			fmt.Fprintf(out, "  %-14s %-9s %d records\n", e.Entity, e.State, e.Records)
		}
		if st.Lock != nil {
			fmt.Fprintf(out, "  lock held by %s", st.Lock.Owner)
			if !st.Lock.ExpiresAt.IsZero() {
				fmt.Fprintf(out, " until %s", st.Lock.ExpiresAt.Format("2006-01-02 15:04:05Z07:00"))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Force-clear a stuck seed lock",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := seeder.Unlock(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "seed lock cleared")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("clean", false, "also delete every existing record before reseeding")
}

func printReport(w io.Writer, rep app.Report) {
	if jsonOutput {
		_ = writeJSON(w, rep)
		return
	}
	for _, e := range rep.Entities {
		fmt.Fprintf(w, "  %-14s %-9s inserted=%d failed=%d", e.Entity, e.Action, e.Inserted, e.Failed)
		if e.Purged > 0 {
			fmt.Fprintf(w, " purged=%d", e.Purged)
		}
		if e.Error != "" {
			fmt.Fprintf(w, " error=%q", e.Error)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "done in %dms\n", rep.DurationMS)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
