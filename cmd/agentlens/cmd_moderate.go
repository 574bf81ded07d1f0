package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/agentlens/agentlens/internal/jobs"
	"github.com/spf13/cobra"
)

func newModerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Screen traces and sessions through the moderation guardrail",
	}

	cmd.AddCommand(newModerateTraceCommand())
	cmd.AddCommand(newModerateSessionCommand())
	cmd.AddCommand(newModerateScopeCommand())
	cmd.AddCommand(newModerateSessionsCommand())
	return cmd
}

func newModerateTraceCommand() *cobra.Command {
	var skipInput, skipOutput bool

	cmd := &cobra.Command{
		Use:   "trace <trace-id>",
		Short: "Moderate one trace inline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("trace id must be an integer, got %q", args[0])
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			moderateInput, moderateOutput := !skipInput, !skipOutput
			return a.guardrail.Execute(cmd.Context(), jobs.GuardrailArgs{
				TraceID:        &id,
				ModerateInput:  &moderateInput,
				ModerateOutput: &moderateOutput,
			})
		},
	}

	cmd.Flags().BoolVar(&skipInput, "skip-input", false, "Do not screen trace inputs")
	cmd.Flags().BoolVar(&skipOutput, "skip-output", false, "Do not screen trace outputs")
	return cmd
}

func newModerateSessionCommand() *cobra.Command {
	var aggregate bool
	var skipInput, skipOutput bool

	cmd := &cobra.Command{
		Use:   "session <session-id>",
		Short: "Moderate one session inline",
		Long: `Moderate one session inline.

Each trace of the session is screened individually. With --aggregate the
session's content is screened as one document instead and a single
session-level score is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("session id must be an integer, got %q", args[0])
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			moderateInput, moderateOutput := !skipInput, !skipOutput
			return a.guardrail.Execute(cmd.Context(), jobs.GuardrailArgs{
				SessionID:      &id,
				Aggregate:      aggregate,
				ModerateInput:  &moderateInput,
				ModerateOutput: &moderateOutput,
			})
		},
	}

	cmd.Flags().BoolVar(&aggregate, "aggregate", false, "Screen the session's content as one document")
	cmd.Flags().BoolVar(&skipInput, "skip-input", false, "Do not screen trace inputs")
	cmd.Flags().BoolVar(&skipOutput, "skip-output", false, "Do not screen trace outputs")
	return cmd
}

func newModerateScopeCommand() *cobra.Command {
	var pct int

	cmd := &cobra.Command{
		Use:   "scope <trace-id>...",
		Short: "Sample traces from a candidate set and queue moderation jobs",
		Long: `Sample traces from a candidate set and queue moderation jobs.

Traces that already have a review item are excluded before sampling. The
sample size rounds up, so any non-empty unreviewed set queues at least one
job.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("trace id must be an integer, got %q", arg)
				}
				ids = append(ids, id)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			count, err := jobs.EnqueueModerationForTraces(cmd.Context(), a.store, ids, pct)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d moderation jobs\n", count)
			return nil
		},
	}

	cmd.Flags().IntVar(&pct, "pct", 100, "Percentage of unreviewed traces to sample (1-100)")
	return cmd
}

func newModerateSessionsCommand() *cobra.Command {
	var since time.Duration
	var agentTypes []string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Queue moderation for recent user-facing sessions",
		Long: `Queue moderation for recent sessions.

By default user-facing sessions created within the --since window are
selected. With --agent-type the selection switches to sessions of the given
agent types instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			cutoff := time.Now().Add(-since)

			var count int
			if len(agentTypes) > 0 {
				count, err = jobs.EnqueueSessionsForAgentTypes(cmd.Context(), a.store, cutoff, agentTypes)
			} else {
				count, err = jobs.EnqueueUserFacingSessions(cmd.Context(), a.store, cutoff)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d session moderation jobs\n", count)
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Only consider sessions created within this window")
	cmd.Flags().StringSliceVar(&agentTypes, "agent-type", nil, "Select sessions of these agent types instead of user-facing sessions")
	return cmd
}
