package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bova-research/dcatlas/internal/boundary"
)

var boundariesCmd = &cobra.Command{
	Use:   "boundaries",
	Short: "State boundary layer commands",
}

var boundariesFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and verify the state boundary shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		idx, err := loadBoundaries(ctx)
		if err != nil {
			return err
		}

		states := idx.States()
		sort.Slice(states, func(i, j int) bool { return states[i].USPS < states[j].USPS })

		fmt.Printf("loaded %d state boundaries\n", idx.Len())
		for _, s := range states {
			conus := ""
			if !boundary.IsCONUS(s.USPS) {
				conus = "  (outside contiguous US)"
			}
			fmt.Printf("  %s  %-30s fips=%s%s\n", s.USPS, s.Name, s.FIPS, conus)
		}
		return nil
	},
}

func init() {
	boundariesCmd.AddCommand(boundariesFetchCmd)
	rootCmd.AddCommand(boundariesCmd)
}
