package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type enqueuedJob struct {
	jobType string
	payload json.RawMessage
}

type fakeEnqueueStore struct {
	mu       sync.Mutex
	jobs     []enqueuedJob
	reviewed map[int64]bool
	sessions []int64
}

func newFakeEnqueueStore() *fakeEnqueueStore {
	return &fakeEnqueueStore{reviewed: map[int64]bool{}}
}

func (f *fakeEnqueueStore) EnqueueJob(_ context.Context, jobType string, payload any) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, err
	}
	f.jobs = append(f.jobs, enqueuedJob{jobType: jobType, payload: data})
	return uuid.New(), nil
}

func (f *fakeEnqueueStore) FilterUnreviewedTraceIDs(_ context.Context, ids []int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, id := range ids {
		if !f.reviewed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeEnqueueStore) ListUserFacingSessionIDs(context.Context, time.Time) ([]int64, error) {
	return f.sessions, nil
}

func (f *fakeEnqueueStore) ListSessionIDsForAgentTypes(context.Context, time.Time, []string) ([]int64, error) {
	return f.sessions, nil
}

func (f *fakeEnqueueStore) enqueuedTraceIDs(t *testing.T) []int64 {
	t.Helper()
	var ids []int64
	for _, job := range f.jobs {
		require.Equal(t, JobTypeModeration, job.jobType)
		args, err := ParseGuardrailArgs(job.payload)
		require.NoError(t, err)
		require.NotNil(t, args.TraceID)
		ids = append(ids, *args.TraceID)
	}
	return ids
}

func TestEnqueueDatasetRun(t *testing.T) {
	fs := newFakeEnqueueStore()
	_, err := EnqueueDatasetRun(context.Background(), fs, 7)
	require.NoError(t, err)
	require.Len(t, fs.jobs, 1)
	require.Equal(t, JobTypeDatasetRun, fs.jobs[0].jobType)

	var payload RunnerPayload
	require.NoError(t, json.Unmarshal(fs.jobs[0].payload, &payload))
	require.Equal(t, int64(7), payload.DatasetRunID)
}

func TestEnqueueModerationForTraces(t *testing.T) {
	ctx := context.Background()

	t.Run("samples ceil of the unreviewed fraction", func(t *testing.T) {
		fs := newFakeEnqueueStore()
		ids := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

		count, err := EnqueueModerationForTraces(ctx, fs, ids, 50)
		require.NoError(t, err)
		require.Equal(t, 5, count)
		require.Len(t, fs.enqueuedTraceIDs(t), 5)
		require.Subset(t, ids, fs.enqueuedTraceIDs(t))
	})

	t.Run("rounds partial samples up", func(t *testing.T) {
		fs := newFakeEnqueueStore()
		count, err := EnqueueModerationForTraces(ctx, fs, []int64{1, 2, 3}, 10)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("reviewed traces are excluded before sampling", func(t *testing.T) {
		fs := newFakeEnqueueStore()
		fs.reviewed[1] = true
		fs.reviewed[2] = true

		count, err := EnqueueModerationForTraces(ctx, fs, []int64{1, 2, 3, 4}, 100)
		require.NoError(t, err)
		require.Equal(t, 2, count)
		require.ElementsMatch(t, []int64{3, 4}, fs.enqueuedTraceIDs(t))
	})

	t.Run("no unreviewed traces queues nothing", func(t *testing.T) {
		fs := newFakeEnqueueStore()
		fs.reviewed[1] = true

		count, err := EnqueueModerationForTraces(ctx, fs, []int64{1}, 100)
		require.NoError(t, err)
		require.Zero(t, count)
		require.Empty(t, fs.jobs)
	})

	t.Run("rejects out-of-range percentages", func(t *testing.T) {
		fs := newFakeEnqueueStore()
		for _, pct := range []int{0, -5, 101} {
			_, err := EnqueueModerationForTraces(ctx, fs, []int64{1}, pct)
			require.Error(t, err)
		}
		require.Empty(t, fs.jobs)
	})
}

func TestEnqueueSessions(t *testing.T) {
	ctx := context.Background()
	since := time.Now().Add(-24 * time.Hour)

	t.Run("queues one job per user-facing session", func(t *testing.T) {
		fs := newFakeEnqueueStore()
		fs.sessions = []int64{11, 12}

		count, err := EnqueueUserFacingSessions(ctx, fs, since)
		require.NoError(t, err)
		require.Equal(t, 2, count)
		require.Len(t, fs.jobs, 2)

		args, err := ParseGuardrailArgs(fs.jobs[0].payload)
		require.NoError(t, err)
		require.NotNil(t, args.SessionID)
		require.Equal(t, int64(11), *args.SessionID)
	})

	t.Run("agent type selection requires at least one type", func(t *testing.T) {
		fs := newFakeEnqueueStore()
		_, err := EnqueueSessionsForAgentTypes(ctx, fs, since, nil)
		require.Error(t, err)
	})

	t.Run("queues sessions for agent types", func(t *testing.T) {
		fs := newFakeEnqueueStore()
		fs.sessions = []int64{21}

		count, err := EnqueueSessionsForAgentTypes(ctx, fs, since, []string{"support"})
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})
}
