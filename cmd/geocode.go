package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bova-research/dcatlas/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode a single address through the cascade",
	Long:  "Sends one address to each available provider in order and prints every answer, useful for diagnosing disagreements.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		street, _ := cmd.Flags().GetString("street")
		city, _ := cmd.Flags().GetString("city")
		state, _ := cmd.Flags().GetString("state")
		zip, _ := cmd.Flags().GetString("zip")

		addr := geocode.AddressInput{Street: street, City: city, State: state, ZipCode: zip}

		st, err := openCheckpoint(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if cached, ok, err := st.GetGeocode(ctx, geocode.CacheKey(addr)); err == nil && ok {
			if cached.Matched {
				fmt.Printf("%-12s %.6f, %.6f (%s, via %s)\n", "cached", cached.Latitude, cached.Longitude, cached.Quality, cached.Source)
			} else {
				fmt.Printf("%-12s no match (via %s)\n", "cached", cached.Source)
			}
		}

		for _, p := range newProviders() {
			if !p.Available() {
				fmt.Printf("%-12s unavailable (not configured)\n", p.Name())
				continue
			}
			result, err := p.Geocode(ctx, addr)
			if err != nil {
				fmt.Printf("%-12s error: %v\n", p.Name(), err)
				continue
			}
			if !result.Matched {
				fmt.Printf("%-12s no match\n", p.Name())
				continue
			}
			fmt.Printf("%-12s %.6f, %.6f (%s)\n", p.Name(), result.Latitude, result.Longitude, result.Quality)
		}
		return nil
	},
}

func init() {
	geocodeCmd.Flags().String("street", "", "street address")
	geocodeCmd.Flags().String("city", "", "city")
	geocodeCmd.Flags().String("state", "", "state (USPS or full name)")
	geocodeCmd.Flags().String("zip", "", "zip code")
	rootCmd.AddCommand(geocodeCmd)
}
