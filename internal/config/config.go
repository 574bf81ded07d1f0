// Package config loads runtime configuration from the environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultWorkers           = 4
	DefaultPollInterval      = time.Second
	DefaultHTTPPort          = 3000
	DefaultRunnerParallelism = 1
)

// Config is the full runtime configuration.
type Config struct {
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `env:"DATABASE_URL, required"`

	// Workers is the number of background job goroutines.
	Workers int `env:"WORKERS, default=4"`

	// PollInterval is how often an idle worker checks the queue.
	PollInterval time.Duration `env:"POLL_INTERVAL, default=1s"`

	// HTTPPort is the port the web API listens on.
	HTTPPort int `env:"HTTP_PORT, default=3000"`

	// RunnerParallelism bounds concurrent run-item evaluation within one
	// dataset run.
	RunnerParallelism int `env:"RUNNER_PARALLELISM, default=1"`

	// ModerationPolicyPath optionally points at a YAML moderation policy.
	// Empty selects the built-in default policy.
	ModerationPolicyPath string `env:"MODERATION_POLICY_PATH"`

	// EvaluatorsPath optionally points at a YAML evaluator spec file. Empty
	// selects the default evaluator set.
	EvaluatorsPath string `env:"EVALUATORS_PATH"`

	// Debug enables debug-level logging.
	Debug bool `env:"DEBUG"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be a valid port, got %d", c.HTTPPort)
	}
	if c.RunnerParallelism < 1 {
		return fmt.Errorf("RUNNER_PARALLELISM must be at least 1, got %d", c.RunnerParallelism)
	}
	return nil
}
