package main

import "github.com/spf13/cobra"

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean the data-center dataset",
	Long:  "Runs the cleaning pipeline and reports on checkpointed runs.",
}

func init() { rootCmd.AddCommand(cleanCmd) }
