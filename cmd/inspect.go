package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bova-research/dcatlas/internal/dataset"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect dataset labels and coverage",
	Long:  "Prints unique country and state labels, coordinate coverage, and per-state record counts for an input dataset.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")
		if input == "" {
			input = cfg.Paths.Input
		}
		if input == "" {
			return fmt.Errorf("no input dataset: pass --input or set paths.input")
		}

		records, err := dataset.Load(input)
		if err != nil {
			return err
		}

		dataset.Summarize(records).Write(os.Stdout)
		return nil
	},
}

func init() {
	inspectCmd.Flags().String("input", "", "input dataset (.csv, .geojson, or .xlsx)")
	rootCmd.AddCommand(inspectCmd)
}
