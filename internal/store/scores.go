package store

import (
	"context"
	"fmt"

	"github.com/agentlens/agentlens/internal/models"
)

const upsertScoreQuery = `
	INSERT INTO scores (owner_type, owner_id, name, source, data_type, value, comment)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (owner_type, owner_id, name, source)
	DO UPDATE SET data_type = EXCLUDED.data_type,
	              value = EXCLUDED.value,
	              comment = EXCLUDED.comment,
	              updated_at = NOW()
	RETURNING id, created_at, updated_at`

const listScoresQuery = `
	SELECT * FROM scores
	WHERE owner_type = $1 AND owner_id = $2
	ORDER BY name, source`

const listRunItemScoresQuery = `
	SELECT s.* FROM scores s
	JOIN run_items ri ON ri.id = s.owner_id
	WHERE s.owner_type = 'run_item' AND ri.dataset_run_id = $1
	ORDER BY s.owner_id, s.name`

// UpsertScore writes a score keyed by (owner, name, source). Re-evaluation
// updates the existing row in place, so concurrent duplicate deliveries of
// the same job converge on a single score per key.
func (s *Store) UpsertScore(ctx context.Context, score *models.Score) error {
	row := s.db.QueryRowxContext(ctx, upsertScoreQuery,
		score.OwnerType, score.OwnerID, score.Name, score.Source,
		score.DataType, score.Value, score.Comment)
	if err := row.Scan(&score.ID, &score.CreatedAt, &score.UpdatedAt); err != nil {
		return fmt.Errorf("score upsert failed: %w", err)
	}
	return nil
}

// ListScores returns all scores attached to one owner record.
func (s *Store) ListScores(ctx context.Context, ownerType models.OwnerType, ownerID int64) ([]models.Score, error) {
	var scores []models.Score
	if err := s.db.SelectContext(ctx, &scores, listScoresQuery, ownerType, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	return scores, nil
}

// ListRunItemScores returns all run-item scores belonging to one dataset run.
func (s *Store) ListRunItemScores(ctx context.Context, datasetRunID int64) ([]models.Score, error) {
	var scores []models.Score
	if err := s.db.SelectContext(ctx, &scores, listRunItemScoresQuery, datasetRunID); err != nil {
		return nil, fmt.Errorf("failed to list run item scores: %w", err)
	}
	return scores, nil
}
