package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("requires a database url", func(t *testing.T) {
		_, err := Load(context.Background())
		require.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/agentlens_test")

		cfg, err := Load(context.Background())
		require.NoError(t, err)
		require.Equal(t, DefaultWorkers, cfg.Workers)
		require.Equal(t, DefaultPollInterval, cfg.PollInterval)
		require.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
		require.Equal(t, DefaultRunnerParallelism, cfg.RunnerParallelism)
		require.Empty(t, cfg.ModerationPolicyPath)
		require.False(t, cfg.Debug)
	})

	t.Run("reads overrides from the environment", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/agentlens_test")
		t.Setenv("WORKERS", "8")
		t.Setenv("POLL_INTERVAL", "250ms")
		t.Setenv("HTTP_PORT", "8080")
		t.Setenv("DEBUG", "true")

		cfg, err := Load(context.Background())
		require.NoError(t, err)
		require.Equal(t, 8, cfg.Workers)
		require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
		require.Equal(t, 8080, cfg.HTTPPort)
		require.True(t, cfg.Debug)
	})

	t.Run("rejects nonsense values", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/agentlens_test")
		t.Setenv("WORKERS", "0")

		_, err := Load(context.Background())
		require.Error(t, err)
	})
}
