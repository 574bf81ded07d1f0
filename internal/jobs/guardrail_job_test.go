package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agentlens/agentlens/internal/models"
	"github.com/agentlens/agentlens/internal/moderation"
	"github.com/agentlens/agentlens/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeGuardrailStore struct {
	mu          sync.Mutex
	traces      map[int64]*models.Trace
	sessions    map[int64]*models.Session
	scores      map[string]*models.Score
	reviewed    map[int64]string
	getAttempts int
}

func newFakeGuardrailStore() *fakeGuardrailStore {
	return &fakeGuardrailStore{
		traces:   map[int64]*models.Trace{},
		sessions: map[int64]*models.Session{},
		scores:   map[string]*models.Score{},
		reviewed: map[int64]string{},
	}
}

func (f *fakeGuardrailStore) GetTrace(_ context.Context, id int64) (*models.Trace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getAttempts++
	trace, ok := f.traces[id]
	if !ok {
		return nil, fmt.Errorf("trace %d: %w", id, store.ErrNotFound)
	}
	return trace, nil
}

func (f *fakeGuardrailStore) GetSession(_ context.Context, id int64) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, store.ErrNotFound)
	}
	return session, nil
}

func (f *fakeGuardrailStore) ListSessionTraces(_ context.Context, sessionID int64) ([]models.Trace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Trace
	for _, tr := range f.traces {
		if tr.SessionID != nil && *tr.SessionID == sessionID {
			out = append(out, *tr)
		}
	}
	return out, nil
}

func (f *fakeGuardrailStore) UpsertScore(_ context.Context, score *models.Score) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s/%d/%s/%s", score.OwnerType, score.OwnerID, score.Name, score.Source)
	f.scores[key] = score
	return nil
}

func (f *fakeGuardrailStore) CreateReviewItem(_ context.Context, traceID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviewed[traceID]; !ok {
		f.reviewed[traceID] = status
	}
	return nil
}

func newTestGuardrailJob(st GuardrailStore) *GuardrailJob {
	j := NewGuardrailJob(st, moderation.NewService(nil))
	j.retry.BaseBackoff = time.Millisecond
	j.retry.MaxBackoff = time.Millisecond
	j.retry.MaxJitter = 0
	return j
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func TestGuardrailJob_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("payload with no target is dropped", func(t *testing.T) {
		fs := newFakeGuardrailStore()
		require.NoError(t, newTestGuardrailJob(fs).Execute(ctx, GuardrailArgs{}))
		require.Empty(t, fs.scores)
	})

	t.Run("missing trace is discarded without retry", func(t *testing.T) {
		fs := newFakeGuardrailStore()
		require.NoError(t, newTestGuardrailJob(fs).Execute(ctx, GuardrailArgs{TraceID: int64Ptr(42)}))
		require.Equal(t, 1, fs.getAttempts)
	})

	t.Run("flagged trace gets a score and a review item", func(t *testing.T) {
		fs := newFakeGuardrailStore()
		fs.traces[1] = &models.Trace{ID: 1, Output: strPtr("I will kill the server")}

		require.NoError(t, newTestGuardrailJob(fs).Execute(ctx, GuardrailArgs{TraceID: int64Ptr(1)}))

		score, ok := fs.scores["trace/1/moderation/programmatic"]
		require.True(t, ok)
		require.Equal(t, 1.0, score.Value)
		require.Equal(t, models.DataTypeBoolean, score.DataType)
		require.NotNil(t, score.Comment)
		require.Contains(t, *score.Comment, "violence")
		require.Equal(t, ReviewStatusPending, fs.reviewed[1])
	})

	t.Run("clean trace gets a passing score", func(t *testing.T) {
		fs := newFakeGuardrailStore()
		fs.traces[2] = &models.Trace{ID: 2, Output: strPtr("all quiet here")}

		require.NoError(t, newTestGuardrailJob(fs).Execute(ctx, GuardrailArgs{TraceID: int64Ptr(2)}))

		score, ok := fs.scores["trace/2/moderation/programmatic"]
		require.True(t, ok)
		require.Equal(t, 0.0, score.Value)
		require.Equal(t, ReviewStatusPending, fs.reviewed[2])
	})

	t.Run("skipped trace gets no score but no error", func(t *testing.T) {
		fs := newFakeGuardrailStore()
		fs.traces[3] = &models.Trace{ID: 3}

		require.NoError(t, newTestGuardrailJob(fs).Execute(ctx, GuardrailArgs{TraceID: int64Ptr(3)}))
		require.Empty(t, fs.scores)
	})

	t.Run("session screens each trace and reviews all of them", func(t *testing.T) {
		fs := newFakeGuardrailStore()
		fs.sessions[10] = &models.Session{ID: 10}
		fs.traces[1] = &models.Trace{ID: 1, SessionID: int64Ptr(10), Output: strPtr("fine")}
		fs.traces[2] = &models.Trace{ID: 2, SessionID: int64Ptr(10), Output: strPtr("I hate everything")}
		fs.traces[3] = &models.Trace{ID: 3, SessionID: int64Ptr(10)}

		require.NoError(t, newTestGuardrailJob(fs).Execute(ctx, GuardrailArgs{SessionID: int64Ptr(10)}))

		require.Contains(t, fs.scores, "trace/1/moderation/programmatic")
		require.Contains(t, fs.scores, "trace/2/moderation/programmatic")
		require.NotContains(t, fs.scores, "trace/3/moderation/programmatic")
		require.Equal(t, 1.0, fs.scores["trace/2/moderation/programmatic"].Value)

		// Skipped traces still count as reviewed.
		require.Len(t, fs.reviewed, 3)
	})

	t.Run("aggregate session writes one session-level score", func(t *testing.T) {
		fs := newFakeGuardrailStore()
		fs.sessions[20] = &models.Session{ID: 20}
		fs.traces[5] = &models.Trace{ID: 5, SessionID: int64Ptr(20), Output: strPtr("reach me at jane@example.com")}

		require.NoError(t, newTestGuardrailJob(fs).Execute(ctx, GuardrailArgs{SessionID: int64Ptr(20), Aggregate: true}))

		score, ok := fs.scores["session/20/moderation/programmatic"]
		require.True(t, ok)
		require.Equal(t, 1.0, score.Value)
		require.Len(t, fs.scores, 1)
		require.Equal(t, ReviewStatusPending, fs.reviewed[5])
	})

	t.Run("input moderation can be disabled via payload", func(t *testing.T) {
		fs := newFakeGuardrailStore()
		fs.traces[6] = &models.Trace{ID: 6, Input: strPtr("jane@example.com"), Output: strPtr("noted")}

		off := false
		require.NoError(t, newTestGuardrailJob(fs).Execute(ctx, GuardrailArgs{TraceID: int64Ptr(6), ModerateInput: &off}))

		score := fs.scores["trace/6/moderation/programmatic"]
		require.NotNil(t, score)
		require.Equal(t, 0.0, score.Value)
	})
}

func TestParseGuardrailArgs(t *testing.T) {
	t.Run("defaults moderate both sides", func(t *testing.T) {
		args, err := ParseGuardrailArgs([]byte(`{"trace_id": 7}`))
		require.NoError(t, err)
		opts := args.Options()
		require.True(t, opts.ModerateInput)
		require.True(t, opts.ModerateOutput)
	})

	t.Run("explicit flags are honored", func(t *testing.T) {
		args, err := ParseGuardrailArgs([]byte(`{"session_id": 8, "moderate_output": false}`))
		require.NoError(t, err)
		opts := args.Options()
		require.True(t, opts.ModerateInput)
		require.False(t, opts.ModerateOutput)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		_, err := ParseGuardrailArgs([]byte(`{`))
		require.Error(t, err)
	})
}
