package jobs

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
)

// Queue job types.
const (
	JobTypeDatasetRun = "dataset_run"
	JobTypeModeration = "moderation"
)

// EnqueueStore is the persistence surface the enqueue operations need.
type EnqueueStore interface {
	EnqueueJob(ctx context.Context, jobType string, payload any) (uuid.UUID, error)
	FilterUnreviewedTraceIDs(ctx context.Context, ids []int64) ([]int64, error)
	ListUserFacingSessionIDs(ctx context.Context, since time.Time) ([]int64, error)
	ListSessionIDsForAgentTypes(ctx context.Context, since time.Time, agentTypes []string) ([]int64, error)
}

// EnqueueDatasetRun queues asynchronous evaluation of one dataset run.
func EnqueueDatasetRun(ctx context.Context, st EnqueueStore, datasetRunID int64) (uuid.UUID, error) {
	return st.EnqueueJob(ctx, JobTypeDatasetRun, RunnerPayload{DatasetRunID: datasetRunID})
}

// EnqueueModerationForTraces samples a percentage of the not-yet-reviewed
// traces among ids and queues a moderation job for each sampled trace. The
// sample size is ceil(unreviewed * pct / 100), so any non-empty candidate set
// with a positive percentage screens at least one trace. Returns the number
// of jobs queued.
func EnqueueModerationForTraces(ctx context.Context, st EnqueueStore, ids []int64, pct int) (int, error) {
	if pct < 1 || pct > 100 {
		return 0, fmt.Errorf("sample percentage must be between 1 and 100, got %d", pct)
	}

	unreviewed, err := st.FilterUnreviewedTraceIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	if len(unreviewed) == 0 {
		return 0, nil
	}

	n := int(math.Ceil(float64(len(unreviewed)) * float64(pct) / 100))
	rand.Shuffle(len(unreviewed), func(i, j int) {
		unreviewed[i], unreviewed[j] = unreviewed[j], unreviewed[i]
	})

	for _, traceID := range unreviewed[:n] {
		id := traceID
		if _, err := st.EnqueueJob(ctx, JobTypeModeration, GuardrailArgs{TraceID: &id}); err != nil {
			return 0, err
		}
	}

	clog.FromContext(ctx).
		With("candidates", len(ids)).
		With("unreviewed", len(unreviewed)).
		With("sampled", n).
		Info("queued trace moderation jobs")
	return n, nil
}

// EnqueueUserFacingSessions queues per-trace moderation for every user-facing
// session created after the cutoff. Returns the number of jobs queued.
func EnqueueUserFacingSessions(ctx context.Context, st EnqueueStore, since time.Time) (int, error) {
	ids, err := st.ListUserFacingSessionIDs(ctx, since)
	if err != nil {
		return 0, err
	}
	return enqueueSessions(ctx, st, ids)
}

// EnqueueSessionsForAgentTypes queues per-trace moderation for sessions of the
// given agent types created after the cutoff. Returns the number of jobs
// queued.
func EnqueueSessionsForAgentTypes(ctx context.Context, st EnqueueStore, since time.Time, agentTypes []string) (int, error) {
	if len(agentTypes) == 0 {
		return 0, fmt.Errorf("at least one agent type is required")
	}
	ids, err := st.ListSessionIDsForAgentTypes(ctx, since, agentTypes)
	if err != nil {
		return 0, err
	}
	return enqueueSessions(ctx, st, ids)
}

func enqueueSessions(ctx context.Context, st EnqueueStore, ids []int64) (int, error) {
	for _, sessionID := range ids {
		id := sessionID
		if _, err := st.EnqueueJob(ctx, JobTypeModeration, GuardrailArgs{SessionID: &id}); err != nil {
			return 0, err
		}
	}
	if len(ids) > 0 {
		clog.FromContext(ctx).With("sessions", len(ids)).Info("queued session moderation jobs")
	}
	return len(ids), nil
}
