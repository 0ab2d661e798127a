package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bova-research/dcatlas/internal/checkpoint"
)

var cleanStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize checkpointed runs",
	Long:  "Lists recent runs from the checkpoint database with per-outcome and per-provider counts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		limit, _ := cmd.Flags().GetInt("limit")
		latest, _ := cmd.Flags().GetBool("latest")

		st, err := openCheckpoint(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var runs []checkpoint.Run
		if latest {
			run, err := st.LatestRun(ctx)
			if err != nil {
				return err
			}
			if run != nil {
				runs = []checkpoint.Run{*run}
			}
		} else {
			runs, err = st.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		for _, run := range runs {
			fmt.Printf("%s  %s  %-8s  %s\n",
				run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Status, run.Input)

			if run.Summary != nil {
				s := run.Summary
				fmt.Printf("  total %d, clean %d, secret %d, dropped %d, geocoded %d\n",
					s.Total, s.Kept, s.Secret, s.Dropped, s.Geocoded)
				providers := make([]string, 0, len(s.ByProvider))
				for p := range s.ByProvider {
					providers = append(providers, p)
				}
				sort.Strings(providers)
				for _, p := range providers {
					fmt.Printf("    %-12s %d\n", p, s.ByProvider[p])
				}
				continue
			}

			// Incomplete run: report progress from the resolution table.
			counts, err := st.CountOutcomes(ctx, run.ID)
			if err != nil {
				return err
			}
			resolved := 0
			for _, n := range counts {
				resolved += n
			}
			fmt.Printf("  %d records resolved (kept %d, secret %d, dropped %d)\n",
				resolved, counts["kept"], counts["secret"], counts["dropped"])
		}
		return nil
	},
}

func init() {
	cleanStatusCmd.Flags().Int("limit", 10, "number of runs to show")
	cleanStatusCmd.Flags().Bool("latest", false, "show only the most recent run")
	cleanCmd.AddCommand(cleanStatusCmd)
}
