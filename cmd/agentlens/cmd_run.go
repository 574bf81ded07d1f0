package main

import (
	"fmt"
	"strconv"

	"github.com/agentlens/agentlens/internal/jobs"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var enqueue bool

	cmd := &cobra.Command{
		Use:   "run <dataset-run-id>",
		Short: "Evaluate a dataset run",
		Long: `Evaluate a dataset run.

By default the run is evaluated synchronously in this process. With --enqueue
the run is queued for the background workers instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("dataset run id must be an integer, got %q", args[0])
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			if enqueue {
				jobID, err := jobs.EnqueueDatasetRun(cmd.Context(), a.store, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued dataset run %d as job %s\n", id, jobID)
				return nil
			}

			return a.runner.Execute(cmd.Context(), id)
		},
	}

	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Queue the run for background workers instead of evaluating inline")
	return cmd
}
