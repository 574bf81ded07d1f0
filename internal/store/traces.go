package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agentlens/agentlens/internal/models"
	"github.com/lib/pq"
)

const getTraceQuery = `SELECT * FROM traces WHERE id = $1`

const getSessionQuery = `SELECT * FROM sessions WHERE id = $1`

const listSessionTracesQuery = `
	SELECT * FROM traces
	WHERE session_id = $1
	ORDER BY created_at, id`

const filterUnreviewedTracesQuery = `
	SELECT t.id FROM traces t
	LEFT JOIN review_items ri ON ri.trace_id = t.id
	WHERE t.id = ANY($1) AND ri.id IS NULL
	ORDER BY t.id`

const createReviewItemQuery = `
	INSERT INTO review_items (trace_id, status)
	VALUES ($1, $2)
	ON CONFLICT (trace_id) DO NOTHING`

const listUserFacingSessionsQuery = `
	SELECT id FROM sessions
	WHERE created_at > $1 AND metadata->>'user_facing' = 'true'
	ORDER BY id`

const listSessionsForAgentTypesQuery = `
	SELECT id FROM sessions
	WHERE created_at > $1 AND metadata->>'agent_type' = ANY($2)
	ORDER BY id`

// GetTrace fetches one trace by id.
func (s *Store) GetTrace(ctx context.Context, id int64) (*models.Trace, error) {
	var trace models.Trace
	err := s.db.GetContext(ctx, &trace, getTraceQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trace %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trace: %w", err)
	}
	return &trace, nil
}

// GetSession fetches one session by id.
func (s *Store) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	var session models.Session
	err := s.db.GetContext(ctx, &session, getSessionQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// ListSessionTraces returns the session's traces in their natural order.
func (s *Store) ListSessionTraces(ctx context.Context, sessionID int64) ([]models.Trace, error) {
	var traces []models.Trace
	if err := s.db.SelectContext(ctx, &traces, listSessionTracesQuery, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list session traces: %w", err)
	}
	return traces, nil
}

// FilterUnreviewedTraceIDs narrows ids to traces that have no review item,
// so already-moderated traces are never screened twice.
func (s *Store) FilterUnreviewedTraceIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []int64
	if err := s.db.SelectContext(ctx, &out, filterUnreviewedTracesQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to filter unreviewed traces: %w", err)
	}
	return out, nil
}

// CreateReviewItem records that a trace has been moderated. Inserting twice
// is a no-op, keeping the write safe under duplicate job delivery.
func (s *Store) CreateReviewItem(ctx context.Context, traceID int64, status string) error {
	if _, err := s.db.ExecContext(ctx, createReviewItemQuery, traceID, status); err != nil {
		return fmt.Errorf("failed to create review item for trace %d: %w", traceID, err)
	}
	return nil
}

// ListUserFacingSessionIDs returns sessions created after the cutoff whose
// metadata marks them user-facing.
func (s *Store) ListUserFacingSessionIDs(ctx context.Context, since time.Time) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, listUserFacingSessionsQuery, since); err != nil {
		return nil, fmt.Errorf("failed to list user-facing sessions: %w", err)
	}
	return ids, nil
}

// ListSessionIDsForAgentTypes returns sessions created after the cutoff whose
// metadata agent type is in agentTypes.
func (s *Store) ListSessionIDsForAgentTypes(ctx context.Context, since time.Time, agentTypes []string) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, listSessionsForAgentTypesQuery, since, pq.Array(agentTypes)); err != nil {
		return nil, fmt.Errorf("failed to list sessions for agent types: %w", err)
	}
	return ids, nil
}
