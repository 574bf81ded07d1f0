// Package store provides PostgreSQL persistence for scores, dataset runs,
// traces, sessions, review items, and the background job queue.
//
// Schema is managed externally. The tables this package expects:
//
//	dataset_runs    (id, name, status, metadata jsonb, created_at, updated_at)
//	run_items       (id, dataset_run_id, trace_id, expected_output jsonb,
//	                 actual_output jsonb, output_match, evaluated_at, created_at)
//	traces          (id, session_id, name, input, output, metadata jsonb, created_at)
//	sessions        (id, name, metadata jsonb, created_at)
//	review_items    (id, trace_id unique, status, created_at)
//	scores          (id, owner_type, owner_id, name, source, data_type, value,
//	                 comment, created_at, updated_at,
//	                 unique (owner_type, owner_id, name, source))
//	background_jobs (id uuid, type, status, payload jsonb, error_message,
//	                 created_at, updated_at, started_at, completed_at)
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a referenced record does not exist. Jobs treat
// it as non-transient: a record that has disappeared will not come back.
var ErrNotFound = errors.New("record not found")

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns pool settings suitable for a small worker fleet.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// Store wraps the database handle with the queries used by the evaluation
// and moderation pipelines.
type Store struct {
	db *sqlx.DB
}

// Open connects to PostgreSQL with retry, pinging before each attempt is
// accepted. Worker processes often start before the database is reachable.
func Open(ctx context.Context, connStr string, pool PoolConfig) (*Store, error) {
	const maxAttempts = 3
	const retryDelay = 2 * time.Second

	var db *sqlx.DB
	var err error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
		if err == nil {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	return &Store{db: db}, nil
}

// New wraps an existing database handle. Used by tests.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
