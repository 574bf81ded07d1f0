package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/agentlens/agentlens/internal/jobs"
	"github.com/agentlens/agentlens/internal/webserver"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the background workers and the HTTP API",
		Long: `Run the background workers and the HTTP API.

Workers poll the job queue for dataset run evaluations and moderation jobs.
The HTTP server exposes runs, items, and scores under /api, a liveness probe
at /healthz, and Prometheus metrics at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			worker := jobs.NewWorker(a.store, a.runner, a.guardrail, a.cfg.Workers, a.cfg.PollInterval)
			worker.Start(ctx)

			srv := webserver.New(webserver.Config{
				Port:  a.cfg.HTTPPort,
				Store: a.store,
			})
			err = srv.ListenAndServe(ctx)

			clog.FromContext(context.WithoutCancel(ctx)).Info("draining workers")
			worker.Stop()
			return err
		},
	}
}
