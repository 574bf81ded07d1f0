package main

import (
	"context"
	"fmt"

	"github.com/agentlens/agentlens/internal/config"
	"github.com/agentlens/agentlens/internal/evaluators"
	"github.com/agentlens/agentlens/internal/jobs"
	"github.com/agentlens/agentlens/internal/moderation"
	"github.com/agentlens/agentlens/internal/runner"
	"github.com/agentlens/agentlens/internal/store"
)

// app bundles the configured store and services for one command invocation.
type app struct {
	cfg       *config.Config
	store     *store.Store
	runner    *jobs.RunnerJob
	guardrail *jobs.GuardrailJob
}

// newApp loads configuration, connects to the database, and wires the
// services. The caller owns the returned app and must Close it.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.DatabaseURL, store.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	evs, err := evaluators.LoadSpecs(cfg.EvaluatorsPath)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	policy, err := moderation.LoadPolicy(cfg.ModerationPolicyPath)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	runnerSvc := runner.New(st, evs, runner.WithWorkers(cfg.RunnerParallelism))

	return &app{
		cfg:       cfg,
		store:     st,
		runner:    jobs.NewRunnerJob(st, runnerSvc),
		guardrail: jobs.NewGuardrailJob(st, moderation.NewService(policy)),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
