package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"marknav/internal/logging"
	"marknav/internal/store"
)

var (
	runsLimit   int
	runsSteps   string
	runsCleanup time.Duration
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded agent runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
	runsCmd.Flags().StringVar(&runsSteps, "steps", "", "show the step history for a run id")
	runsCmd.Flags().DurationVar(&runsCleanup, "cleanup", 0, "delete runs older than this duration")
}

func runRuns(cmd *cobra.Command, args []string) error {
	rs, err := store.Open(cfg.Trace.DatabasePath)
	if err != nil {
		return err
	}
	defer rs.Close()

	if runsCleanup > 0 {
		n, err := rs.Cleanup(runsCleanup)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d run(s)\n", n)
		return nil
	}

	if runsSteps != "" {
		steps, err := rs.Steps(runsSteps)
		if err != nil {
			return err
		}
		for _, s := range steps {
			fmt.Printf("step %-3d %-10s accepted=%d  %s\n",
				s.Step, s.Decision, s.Accepted, logging.Truncate(s.Progress, 80))
		}
		return nil
	}

	runs, err := rs.RecentRuns(runsLimit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		status := "miss"
		if r.Success {
			status = "hit "
		}
		fmt.Printf("%s  %s  %s  %-15s steps=%-3d %s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.RunID[:8], status,
			r.StopReason, r.StepsUsed, logging.Truncate(r.Summary, 60))
	}

	total, succeeded, err := rs.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("\n%d run(s) recorded, %d succeeded\n", total, succeeded)
	return nil
}
