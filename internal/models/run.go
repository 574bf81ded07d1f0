package models

import "time"

// RunStatus is the lifecycle state of a dataset run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Metadata keys written on terminal failure of a dataset run.
const (
	MetaKeyError            = "error"
	MetaKeyErrorClass       = "error_class"
	MetaKeyFailedAt         = "failed_at"
	MetaKeyRetriesExhausted = "retries_exhausted"
)

// DatasetRun aggregates the run items produced by evaluating one dataset.
// It is created externally and transitioned by the runner service and job;
// Metadata records failure diagnostics on terminal failure.
type DatasetRun struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Status    RunStatus `db:"status" json:"status"`
	Metadata  Metadata  `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RunItem is one dataset example fed through the evaluator set. It holds the
// expected output supplied with the dataset and the actual output produced by
// the agent under test. Only the runner service mutates it.
type RunItem struct {
	ID             int64      `db:"id" json:"id"`
	DatasetRunID   int64      `db:"dataset_run_id" json:"dataset_run_id"`
	TraceID        *int64     `db:"trace_id" json:"trace_id,omitempty"`
	ExpectedOutput JSONValue  `db:"expected_output" json:"expected_output"`
	ActualOutput   JSONValue  `db:"actual_output" json:"actual_output"`
	OutputMatch    *bool      `db:"output_match" json:"output_match,omitempty"`
	EvaluatedAt    *time.Time `db:"evaluated_at" json:"evaluated_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// OutputMatches reports whether the actual output equals the expected output,
// comparing canonical string forms so that structurally equal JSON documents
// match regardless of how they were serialized. Returns false when no
// expectation was supplied.
func (ri *RunItem) OutputMatches() bool {
	if ri.ExpectedOutput.IsEmpty() {
		return false
	}
	return ri.ExpectedOutput.CanonicalString() == ri.ActualOutput.CanonicalString()
}
