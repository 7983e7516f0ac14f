package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/app"
	"brokerage_site/internal/shared"
	"brokerage_site/internal/wiring"
)

var (
	cfg        shared.Config
	jsonOutput bool

	backend *wiring.Backend
	seeder  *app.Seeder
)

var rootCmd = &cobra.Command{
	Use:           "seed <command>",
	Short:         "Bootstrap and inspect the brokerage content store",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
		b, err := wiring.OpenBackend(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
		}
		backend = b
		cat := app.NewCatalog(b.KV)
		seeder = app.NewSeeder(b.KV, b.Lock, cat.Targets(),
			app.WithWorkers(cfg.SeedWorkers),
			app.WithLockTTL(cfg.SeedLockTTL),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if backend != nil {
			_ = backend.Close()
		}
	},
}

func init() {
	cfg = shared.Load()
	rootCmd.PersistentFlags().StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "backing store (mysql, redis, supabase, dynamodb, memory)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.AddCommand(runCmd, resetCmd, statusCmd, unlockCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
