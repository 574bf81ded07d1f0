package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentlens/agentlens/internal/metrics"
	"github.com/agentlens/agentlens/internal/models"
	"github.com/agentlens/agentlens/internal/moderation"
	"github.com/agentlens/agentlens/internal/store"
	"github.com/chainguard-dev/clog"
)

// ModerationScoreName is the score name the guardrail writes for every
// non-skipped result.
const ModerationScoreName = "moderation"

// ReviewStatusPending marks freshly-moderated traces awaiting human review.
const ReviewStatusPending = "pending"

// GuardrailArgs is the queue payload for moderation jobs. Exactly one of
// TraceID or SessionID should be set; Aggregate selects whole-session
// screening instead of per-trace screening when a session is targeted.
type GuardrailArgs struct {
	TraceID        *int64 `json:"trace_id,omitempty"`
	SessionID      *int64 `json:"session_id,omitempty"`
	ModerateInput  *bool  `json:"moderate_input,omitempty"`
	ModerateOutput *bool  `json:"moderate_output,omitempty"`
	Aggregate      bool   `json:"aggregate,omitempty"`
}

// Options resolves the payload's optional flags against the defaults.
func (a GuardrailArgs) Options() moderation.Options {
	opts := moderation.DefaultOptions()
	if a.ModerateInput != nil {
		opts.ModerateInput = *a.ModerateInput
	}
	if a.ModerateOutput != nil {
		opts.ModerateOutput = *a.ModerateOutput
	}
	return opts
}

// GuardrailStore is the persistence surface the guardrail job needs.
type GuardrailStore interface {
	GetTrace(ctx context.Context, id int64) (*models.Trace, error)
	GetSession(ctx context.Context, id int64) (*models.Session, error)
	ListSessionTraces(ctx context.Context, sessionID int64) ([]models.Trace, error)
	UpsertScore(ctx context.Context, score *models.Score) error
	CreateReviewItem(ctx context.Context, traceID int64, status string) error
}

// GuardrailJob screens traces and sessions through the moderation service and
// persists the outcome. Records that vanished between enqueue and execution
// are discarded rather than retried.
type GuardrailJob struct {
	store   GuardrailStore
	service *moderation.Service
	retry   RetryPolicy
}

// NewGuardrailJob creates a guardrail job with the default retry policy.
func NewGuardrailJob(st GuardrailStore, svc *moderation.Service) *GuardrailJob {
	return &GuardrailJob{
		store:   st,
		service: svc,
		retry: DefaultRetryPolicy(func(err error) Class {
			if errors.Is(err, store.ErrNotFound) {
				return ClassDiscard
			}
			return ClassTransient
		}),
	}
}

// ParseGuardrailArgs decodes a queue payload.
func ParseGuardrailArgs(payload json.RawMessage) (GuardrailArgs, error) {
	var args GuardrailArgs
	if err := json.Unmarshal(payload, &args); err != nil {
		return GuardrailArgs{}, fmt.Errorf("failed to decode moderation payload: %w", err)
	}
	return args, nil
}

// Execute screens the targeted trace or session. A payload naming neither is
// logged and dropped; a target that no longer exists is discarded without
// retry.
func (j *GuardrailJob) Execute(ctx context.Context, args GuardrailArgs) error {
	log := clog.FromContext(ctx)

	var operation string
	var run func(context.Context) error
	switch {
	case args.TraceID != nil:
		operation = fmt.Sprintf("moderate trace %d", *args.TraceID)
		run = func(ctx context.Context) error {
			return j.moderateTrace(ctx, *args.TraceID, args.Options())
		}
	case args.SessionID != nil:
		operation = fmt.Sprintf("moderate session %d", *args.SessionID)
		run = func(ctx context.Context) error {
			return j.moderateSession(ctx, *args.SessionID, args)
		}
	default:
		log.Warn("moderation job names neither a trace nor a session, dropping")
		return nil
	}

	err := j.retry.Do(ctx, operation, run)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("moderation target no longer exists, discarding job", "error", err)
		return nil
	}
	return err
}

func (j *GuardrailJob) moderateTrace(ctx context.Context, traceID int64, opts moderation.Options) error {
	trace, err := j.store.GetTrace(ctx, traceID)
	if err != nil {
		return err
	}

	result := j.service.EvaluateTrace(trace, opts)
	return j.record(ctx, models.OwnerTrace, trace.ID, result)
}

func (j *GuardrailJob) moderateSession(ctx context.Context, sessionID int64, args GuardrailArgs) error {
	session, err := j.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	traces, err := j.store.ListSessionTraces(ctx, session.ID)
	if err != nil {
		return err
	}

	if args.Aggregate {
		result := j.service.EvaluateSessionContent(session, traces)
		if err := j.record(ctx, models.OwnerSession, session.ID, result); err != nil {
			return err
		}
	} else {
		results := j.service.EvaluateSession(traces, args.Options())
		for i, result := range results {
			if err := j.record(ctx, models.OwnerTrace, traces[i].ID, result); err != nil {
				return err
			}
		}
	}

	// Every trace touched by a session screen counts as reviewed, whichever
	// granularity produced the results.
	for _, tr := range traces {
		if err := j.store.CreateReviewItem(ctx, tr.ID, ReviewStatusPending); err != nil {
			return err
		}
	}
	return nil
}

// record is the single logging and persistence boundary for moderation
// outcomes. Skipped results are logged only; evaluated results additionally
// produce a score and, for traces, a review item.
func (j *GuardrailJob) record(ctx context.Context, owner models.OwnerType, ownerID int64, result models.ModerationResult) error {
	log := clog.FromContext(ctx).
		With("owner_type", owner).
		With("owner_id", ownerID).
		With("action", result.Action)

	metrics.RecordModerationResult(string(result.Action))

	switch result.Action {
	case models.ActionFlagged:
		log.With("priority", result.Priority).
			With("categories", result.Categories()).
			Warn(result.Reason)
	case models.ActionSkipped:
		log.Info(result.Reason)
		return nil
	default:
		log.Debug("content passed moderation")
	}

	value := 0.0
	if result.Action == models.ActionFlagged {
		value = 1.0
	}
	score := &models.Score{
		OwnerType: owner,
		OwnerID:   ownerID,
		Name:      ModerationScoreName,
		Source:    models.SourceProgrammatic,
		DataType:  models.DataTypeBoolean,
		Value:     value,
	}
	if result.Reason != "" {
		score.Comment = &result.Reason
	}
	if err := j.store.UpsertScore(ctx, score); err != nil {
		return err
	}
	metrics.RecordScoreWritten(ModerationScoreName)

	if owner == models.OwnerTrace {
		return j.store.CreateReviewItem(ctx, ownerID, ReviewStatusPending)
	}
	return nil
}
