package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agentlens/agentlens/internal/models"
	"github.com/lib/pq"
)

const getDatasetRunQuery = `SELECT * FROM dataset_runs WHERE id = $1`

const listDatasetRunsQuery = `
	SELECT * FROM dataset_runs
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

const transitionDatasetRunQuery = `
	UPDATE dataset_runs
	SET status = $3, updated_at = NOW()
	WHERE id = $1 AND status = ANY($2)`

const markDatasetRunFailedQuery = `
	UPDATE dataset_runs
	SET status = 'failed',
	    metadata = COALESCE(metadata, '{}'::jsonb) || $2::jsonb,
	    updated_at = NOW()
	WHERE id = $1`

const listRunItemsQuery = `
	SELECT * FROM run_items
	WHERE dataset_run_id = $1
	ORDER BY id`

const markRunItemEvaluatedQuery = `
	UPDATE run_items
	SET output_match = $2, evaluated_at = NOW()
	WHERE id = $1`

// GetDatasetRun fetches one dataset run by id.
func (s *Store) GetDatasetRun(ctx context.Context, id int64) (*models.DatasetRun, error) {
	var run models.DatasetRun
	err := s.db.GetContext(ctx, &run, getDatasetRunQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset run %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset run: %w", err)
	}
	return &run, nil
}

// ListDatasetRuns returns runs newest-first.
func (s *Store) ListDatasetRuns(ctx context.Context, limit, offset int) ([]models.DatasetRun, error) {
	var runs []models.DatasetRun
	if err := s.db.SelectContext(ctx, &runs, listDatasetRunsQuery, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list dataset runs: %w", err)
	}
	return runs, nil
}

// TransitionDatasetRun moves a run to status to only if its current status is
// one of from. Returns false when no row changed — the run was already past
// the expected state. This conditional single-record update is the
// idempotency guard against duplicate concurrent execution.
func (s *Store) TransitionDatasetRun(ctx context.Context, id int64, from []models.RunStatus, to models.RunStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}

	res, err := s.db.ExecContext(ctx, transitionDatasetRunQuery, id, pq.Array(statuses), to)
	if err != nil {
		return false, fmt.Errorf("failed to transition dataset run %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkDatasetRunFailed sets the run to failed and merges diag into its
// metadata mapping, preserving keys written by other collaborators.
func (s *Store) MarkDatasetRunFailed(ctx context.Context, id int64, diag models.Metadata) error {
	diagValue, err := diag.Value()
	if err != nil {
		return fmt.Errorf("failed to serialize failure metadata: %w", err)
	}

	res, err := s.db.ExecContext(ctx, markDatasetRunFailedQuery, id, diagValue)
	if err != nil {
		return fmt.Errorf("failed to mark dataset run %d failed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("dataset run %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListRunItems returns the run's items in stable id order.
func (s *Store) ListRunItems(ctx context.Context, datasetRunID int64) ([]models.RunItem, error) {
	var items []models.RunItem
	if err := s.db.SelectContext(ctx, &items, listRunItemsQuery, datasetRunID); err != nil {
		return nil, fmt.Errorf("failed to list run items: %w", err)
	}
	return items, nil
}

// MarkRunItemEvaluated records the derived output-match result and the
// evaluation timestamp on one run item.
func (s *Store) MarkRunItemEvaluated(ctx context.Context, itemID int64, outputMatch *bool) error {
	if _, err := s.db.ExecContext(ctx, markRunItemEvaluatedQuery, itemID, outputMatch); err != nil {
		return fmt.Errorf("failed to mark run item %d evaluated: %w", itemID, err)
	}
	return nil
}
