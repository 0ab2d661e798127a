package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bova-research/dcatlas/internal/db"
	"github.com/bova-research/dcatlas/internal/pipeline"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror pipeline outputs into Postgres",
	Long:  "Reads the clean and secret CSVs and upserts them into the configured Postgres schema, optionally alongside the state boundary geometries.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Mirror.DatabaseURL == "" {
			return eris.New("mirror: database_url not configured")
		}

		cleanPath, _ := cmd.Flags().GetString("clean")
		secretPath, _ := cmd.Flags().GetString("secret")
		withBoundaries, _ := cmd.Flags().GetBool("boundaries")
		if cleanPath == "" {
			cleanPath = cfg.Paths.CleanOutput
		}
		if secretPath == "" {
			secretPath = cfg.Paths.SecretOutput
		}

		pool, err := db.Connect(ctx, cfg.Mirror.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		m := db.NewMirror(pool, cfg.Mirror.Schema)
		if err := m.Migrate(ctx); err != nil {
			return err
		}

		for _, src := range []struct {
			path string
			tier string
		}{
			{cleanPath, db.TierClean},
			{secretPath, db.TierSecret},
		} {
			records, err := pipeline.ReadRecords(src.path)
			if err != nil {
				return err
			}
			n, err := m.UpsertRecords(ctx, records, src.tier)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d records mirrored (%s)\n", src.tier, n, src.path)
		}

		if withBoundaries {
			idx, err := loadBoundaries(ctx)
			if err != nil {
				return err
			}
			n, err := m.UpsertBoundaries(ctx, idx.States())
			if err != nil {
				return err
			}
			fmt.Printf("boundaries: %d states mirrored\n", n)
		}
		return nil
	},
}

func init() {
	mirrorCmd.Flags().String("clean", "", "clean CSV to mirror (default from config)")
	mirrorCmd.Flags().String("secret", "", "secret CSV to mirror (default from config)")
	mirrorCmd.Flags().Bool("boundaries", false, "also mirror state boundary geometries")
	rootCmd.AddCommand(mirrorCmd)
}
