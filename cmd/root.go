package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bova-research/dcatlas/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dcatlas",
	Short: "Data-center geolocation cleaning pipeline",
	Long:  "Filters a data-center dataset to the contiguous US, joins records against state boundaries, reconciles coordinates through a geocoder cascade, and writes clean and secret outputs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
