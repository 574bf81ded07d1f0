package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agentlens/agentlens/internal/models"
	"github.com/agentlens/agentlens/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeRunnerStore struct {
	mu   sync.Mutex
	runs map[int64]*models.DatasetRun
}

func newFakeRunnerStore(runs ...*models.DatasetRun) *fakeRunnerStore {
	fs := &fakeRunnerStore{runs: map[int64]*models.DatasetRun{}}
	for _, r := range runs {
		fs.runs[r.ID] = r
	}
	return fs
}

func (f *fakeRunnerStore) GetDatasetRun(_ context.Context, id int64) (*models.DatasetRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, fmt.Errorf("dataset run %d: %w", id, store.ErrNotFound)
	}
	copied := *run
	return &copied, nil
}

func (f *fakeRunnerStore) MarkDatasetRunFailed(_ context.Context, id int64, diag models.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return fmt.Errorf("dataset run %d: %w", id, store.ErrNotFound)
	}
	run.Status = models.RunStatusFailed
	if run.Metadata == nil {
		run.Metadata = models.Metadata{}
	}
	for k, v := range diag {
		run.Metadata[k] = v
	}
	return nil
}

type fakeRunnerService struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRunnerService) Run(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func newTestRunnerJob(st RunnerStore, svc RunnerService) *RunnerJob {
	j := NewRunnerJob(st, svc)
	j.retry.BaseBackoff = time.Millisecond
	j.retry.MaxBackoff = time.Millisecond
	j.retry.MaxJitter = 0
	return j
}

func TestRunnerJob_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("runs a pending run once", func(t *testing.T) {
		fs := newFakeRunnerStore(&models.DatasetRun{ID: 1, Status: models.RunStatusPending})
		svc := &fakeRunnerService{}
		require.NoError(t, newTestRunnerJob(fs, svc).Execute(ctx, 1))
		require.Equal(t, 1, svc.calls)
	})

	t.Run("skips runs that are already running", func(t *testing.T) {
		fs := newFakeRunnerStore(&models.DatasetRun{ID: 2, Status: models.RunStatusRunning})
		svc := &fakeRunnerService{}
		require.NoError(t, newTestRunnerJob(fs, svc).Execute(ctx, 2))
		require.Zero(t, svc.calls)
	})

	t.Run("skips finished runs", func(t *testing.T) {
		fs := newFakeRunnerStore(&models.DatasetRun{ID: 3, Status: models.RunStatusCompleted})
		svc := &fakeRunnerService{}
		require.NoError(t, newTestRunnerJob(fs, svc).Execute(ctx, 3))
		require.Zero(t, svc.calls)
	})

	t.Run("discards jobs for missing runs without retrying", func(t *testing.T) {
		fs := newFakeRunnerStore()
		svc := &fakeRunnerService{}
		require.NoError(t, newTestRunnerJob(fs, svc).Execute(ctx, 99))
		require.Zero(t, svc.calls)
	})

	t.Run("marks the run failed after exhausting retries", func(t *testing.T) {
		fs := newFakeRunnerStore(&models.DatasetRun{ID: 4, Status: models.RunStatusPending})
		svc := &fakeRunnerService{err: errors.New("database went away")}

		err := newTestRunnerJob(fs, svc).Execute(ctx, 4)
		require.Error(t, err)
		require.Equal(t, 3, svc.calls)

		run, getErr := fs.GetDatasetRun(ctx, 4)
		require.NoError(t, getErr)
		require.Equal(t, models.RunStatusFailed, run.Status)
		require.Equal(t, true, run.Metadata[models.MetaKeyRetriesExhausted])
		require.Contains(t, run.Metadata[models.MetaKeyError], "database went away")
		require.NotEmpty(t, run.Metadata[models.MetaKeyErrorClass])

		failedAt, ok := run.Metadata[models.MetaKeyFailedAt].(string)
		require.True(t, ok)
		_, parseErr := time.Parse(time.RFC3339, failedAt)
		require.NoError(t, parseErr)
	})

	t.Run("discards when the run vanishes mid-evaluation", func(t *testing.T) {
		fs := newFakeRunnerStore(&models.DatasetRun{ID: 5, Status: models.RunStatusPending})
		svc := &fakeRunnerService{err: fmt.Errorf("load items: %w", store.ErrNotFound)}

		require.NoError(t, newTestRunnerJob(fs, svc).Execute(ctx, 5))
		require.Equal(t, 1, svc.calls)

		run, err := fs.GetDatasetRun(ctx, 5)
		require.NoError(t, err)
		require.Equal(t, models.RunStatusPending, run.Status)
	})
}
