package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bova-research/dcatlas/internal/pipeline"
)

var cleanRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full cleaning pipeline",
	Long:  "Loads the dataset, filters to the contiguous US, joins records against state boundaries, resolves coordinates through the geocoder cascade, and writes the clean and secret CSV outputs.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		cleanOut, _ := cmd.Flags().GetString("clean-out")
		secretOut, _ := cmd.Flags().GetString("secret-out")
		states, _ := cmd.Flags().GetStringSlice("states")
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		resume, _ := cmd.Flags().GetString("resume")

		if input == "" {
			input = cfg.Paths.Input
		}
		if input == "" {
			return fmt.Errorf("no input dataset: pass --input or set paths.input")
		}
		if cleanOut == "" {
			cleanOut = cfg.Paths.CleanOutput
		}
		if secretOut == "" {
			secretOut = cfg.Paths.SecretOutput
		}

		st, err := openCheckpoint(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var p *pipeline.Pipeline
		if dryRun {
			// Dry runs stop before the spatial join and geocoding.
			p = pipeline.New(cfg, nil, nil, st)
		} else {
			idx, err := loadBoundaries(ctx)
			if err != nil {
				return err
			}
			p = pipeline.New(cfg, idx, newGeocoder(st), st)
		}

		report, err := p.Run(ctx, pipeline.Options{
			Input:     input,
			CleanOut:  cleanOut,
			SecretOut: secretOut,
			Manifest:  cfg.Paths.Manifest,
			States:    states,
			Limit:     limit,
			DryRun:    dryRun,
			ResumeRun: resume,
		})
		if err != nil {
			return err
		}

		sum := report.Summary
		if report.DryRun {
			fmt.Printf("Dry run: %d records, %d would be dropped at the filter stage\n", sum.Total, sum.Dropped)
			printReasons(sum.ByDropReason)
			return nil
		}

		fmt.Printf("Run %s complete\n", report.RunID)
		fmt.Printf("  total:    %d\n", sum.Total)
		fmt.Printf("  clean:    %d -> %s\n", sum.Kept, report.CleanOut)
		fmt.Printf("  secret:   %d -> %s\n", sum.Secret, report.SecretOut)
		fmt.Printf("  geocoded: %d\n", sum.Geocoded)
		fmt.Printf("  dropped:  %d\n", sum.Dropped)
		printReasons(sum.ByDropReason)
		return nil
	},
}

func printReasons(reasons map[string]int) {
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("    %-20s %d\n", k, reasons[k])
	}
}

func init() {
	cleanRunCmd.Flags().String("input", "", "input dataset (.csv, .geojson, or .xlsx)")
	cleanRunCmd.Flags().String("clean-out", "", "clean output CSV path")
	cleanRunCmd.Flags().String("secret-out", "", "secret output CSV path")
	cleanRunCmd.Flags().StringSlice("states", nil, "restrict the run to these states (USPS or full name)")
	cleanRunCmd.Flags().Int("limit", 0, "process at most N records (0 = all)")
	cleanRunCmd.Flags().Bool("dry-run", false, "parse and filter only, print a summary")
	cleanRunCmd.Flags().String("resume", "", "resume a previous run by ID; bare --resume picks the latest unfinished run over the input")
	cleanRunCmd.Flags().Lookup("resume").NoOptDefVal = pipeline.ResumeAuto
	cleanCmd.AddCommand(cleanRunCmd)
}
