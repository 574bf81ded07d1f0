package models

// ModerationAction classifies the outcome of screening one piece of content.
type ModerationAction string

const (
	// ActionFlagged means a policy violation was found; Details carries the
	// matched category list and Priority the severity.
	ActionFlagged ModerationAction = "flagged"
	// ActionSkipped means screening was not applicable; Reason says why.
	ActionSkipped ModerationAction = "skipped"
	// ActionPassed means the content was screened and no violation was found.
	ActionPassed ModerationAction = "passed"
)

// Priority is the severity attached to a moderation category or result.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var priorityRank = map[Priority]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
}

// Exceeds reports whether p is a strictly higher severity than other.
// Unknown priorities rank below low.
func (p Priority) Exceeds(other Priority) bool {
	return priorityRank[p] > priorityRank[other]
}

// ModerationResult is the ephemeral outcome of screening a trace or session.
// It is not persisted directly; the guardrail job decides what to log and
// which score/review records to write from it.
type ModerationResult struct {
	Action   ModerationAction `json:"action"`
	Priority Priority         `json:"priority,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Details  map[string]any   `json:"details,omitempty"`
}

// Categories returns the flagged category names from Details, if any.
func (r ModerationResult) Categories() []string {
	v, ok := r.Details["categories"]
	if !ok {
		return nil
	}
	cats, ok := v.([]string)
	if !ok {
		return nil
	}
	return cats
}
