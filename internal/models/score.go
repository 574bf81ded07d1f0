// Package models defines the domain types shared across the evaluation and
// moderation pipelines: scores, dataset runs and their items, traces,
// sessions, and moderation results.
package models

import "time"

// ScoreSource identifies who produced a score.
type ScoreSource string

const (
	SourceProgrammatic ScoreSource = "programmatic"
	SourceHuman        ScoreSource = "human"
)

// ScoreDataType describes how a score's numeric value should be read.
type ScoreDataType string

const (
	DataTypeNumeric ScoreDataType = "numeric"
	// DataTypeBoolean marks scores whose value is 0.0 or 1.0.
	DataTypeBoolean ScoreDataType = "boolean"
)

// OwnerType identifies the kind of record a score is attached to.
type OwnerType string

const (
	OwnerRunItem OwnerType = "run_item"
	OwnerTrace   OwnerType = "trace"
	OwnerSession OwnerType = "session"
)

// Score is a named, sourced value attached to exactly one owner record.
// At most one score exists per (owner, name, source) tuple; re-evaluation
// updates the existing row rather than inserting a duplicate.
type Score struct {
	ID        int64         `db:"id" json:"id"`
	OwnerType OwnerType     `db:"owner_type" json:"owner_type"`
	OwnerID   int64         `db:"owner_id" json:"owner_id"`
	Name      string        `db:"name" json:"name"`
	Source    ScoreSource   `db:"source" json:"source"`
	DataType  ScoreDataType `db:"data_type" json:"data_type"`
	Value     float64       `db:"value" json:"value"`
	Comment   *string       `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}
