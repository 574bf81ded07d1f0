package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job statuses in the background queue.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// Job is one unit of background work. Delivery is at-least-once: a worker
// crash after claiming leaves the row processing until it is requeued, and
// every handler is expected to be idempotent.
type Job struct {
	ID           uuid.UUID       `db:"id"`
	Type         string          `db:"type"`
	Status       string          `db:"status"`
	Payload      json.RawMessage `db:"payload"`
	ErrorMessage *string         `db:"error_message"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
	StartedAt    *time.Time      `db:"started_at"`
	CompletedAt  *time.Time      `db:"completed_at"`
}

const enqueueJobQuery = `
	INSERT INTO background_jobs (id, type, status, payload)
	VALUES ($1, $2, 'queued', $3)`

const claimJobQuery = `
	UPDATE background_jobs
	SET status = 'processing', started_at = NOW(), updated_at = NOW()
	WHERE id = (
		SELECT id FROM background_jobs
		WHERE status = 'queued'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	)
	RETURNING *`

const finishJobQuery = `
	UPDATE background_jobs
	SET status = $2, error_message = $3, completed_at = NOW(), updated_at = NOW()
	WHERE id = $1`

// EnqueueJob adds a job of the given type to the queue. The payload must be
// JSON-serializable.
func (s *Store) EnqueueJob(ctx context.Context, jobType string, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to serialize job payload: %w", err)
	}

	id := uuid.New()
	if _, err := s.db.ExecContext(ctx, enqueueJobQuery, id, jobType, data); err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}
	return id, nil
}

// ClaimJob atomically takes the oldest queued job, or returns nil when the
// queue is empty. SKIP LOCKED lets concurrent workers claim without blocking
// each other.
func (s *Store) ClaimJob(ctx context.Context) (*Job, error) {
	var job Job
	err := s.db.GetContext(ctx, &job, claimJobQuery)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return &job, nil
}

// CompleteJob marks a claimed job done.
func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, finishJobQuery, id, JobStatusDone, nil); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return nil
}

// FailJob marks a claimed job failed with its final error message.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, errMsg string) error {
	if _, err := s.db.ExecContext(ctx, finishJobQuery, id, JobStatusFailed, &errMsg); err != nil {
		return fmt.Errorf("failed to fail job %s: %w", id, err)
	}
	return nil
}
