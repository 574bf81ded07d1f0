package models

import "time"

// Session metadata keys recognized by the moderation selection queries.
const (
	SessionMetaUserFacing = "user_facing"
	SessionMetaAgentType  = "agent_type"
)

// Trace is one recorded agent interaction. Traces are externally owned; the
// moderation pipeline reads their content and attaches scores but never
// mutates their core fields.
type Trace struct {
	ID        int64     `db:"id" json:"id"`
	SessionID *int64    `db:"session_id" json:"session_id,omitempty"`
	Name      string    `db:"name" json:"name"`
	Input     *string   `db:"input" json:"input,omitempty"`
	Output    *string   `db:"output" json:"output,omitempty"`
	Metadata  Metadata  `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Session groups a sequence of traces from one conversation.
type Session struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Metadata  Metadata  `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReviewItem marks that a trace has been through moderation. Selection of
// un-moderated traces keys off its absence.
type ReviewItem struct {
	ID        int64     `db:"id" json:"id"`
	TraceID   int64     `db:"trace_id" json:"trace_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
