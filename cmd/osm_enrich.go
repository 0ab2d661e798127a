package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bova-research/dcatlas/internal/osm"
)

var osmEnrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich cleaned records with OSM building history",
	Long:  "For each record, searches OSM for a data-center building near the resolved coordinates and derives tag history, last relevant change, and an inferred operational year.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		limit, _ := cmd.Flags().GetInt("limit")

		if input == "" {
			input = cfg.Paths.CleanOutput
		}
		if output == "" {
			return eris.New("osm enrich: --output is required")
		}

		client := osm.NewClient(cfg.OSM, cfg.Geocode.UserAgent)
		enricher := osm.NewEnricher(client, cfg.OSM)

		n, err := enricher.EnrichFile(ctx, input, output, limit)
		if err != nil {
			return err
		}
		fmt.Printf("enriched %d records -> %s\n", n, output)
		return nil
	},
}

func init() {
	osmEnrichCmd.Flags().String("input", "", "input CSV (default: clean output from config)")
	osmEnrichCmd.Flags().String("output", "", "output CSV path")
	osmEnrichCmd.Flags().Int("limit", 0, "process at most N records (0 = all)")
	osmCmd.AddCommand(osmEnrichCmd)
}
