package main

import (
	"github.com/spf13/cobra"
)

var osmCmd = &cobra.Command{
	Use:   "osm",
	Short: "OpenStreetMap enrichment commands",
}

func init() {
	rootCmd.AddCommand(osmCmd)
}
