package moderation

import (
	"fmt"
	"strings"

	"github.com/agentlens/agentlens/internal/models"
)

// Options gate which sides of a trace are screened.
type Options struct {
	ModerateInput  bool
	ModerateOutput bool
}

// DefaultOptions screens both input and output.
func DefaultOptions() Options {
	return Options{ModerateInput: true, ModerateOutput: true}
}

// Service applies a moderation policy to trace and session content.
type Service struct {
	policy *Policy
}

// NewService creates a moderation service. A nil policy selects the default.
func NewService(policy *Policy) *Service {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Service{policy: policy}
}

// EvaluateTrace screens one trace's input and/or output per opts and returns
// a single result.
func (s *Service) EvaluateTrace(trace *models.Trace, opts Options) models.ModerationResult {
	if !opts.ModerateInput && !opts.ModerateOutput {
		return skipped("input and output moderation both disabled")
	}

	var parts []string
	if opts.ModerateInput && trace.Input != nil && *trace.Input != "" {
		parts = append(parts, *trace.Input)
	}
	if opts.ModerateOutput && trace.Output != nil && *trace.Output != "" {
		parts = append(parts, *trace.Output)
	}
	if len(parts) == 0 {
		return skipped(fmt.Sprintf("trace %d has no content to screen", trace.ID))
	}

	return s.screen(strings.Join(parts, "\n"))
}

// EvaluateSession screens each of the session's traces independently and
// returns one result per trace, in the session's natural trace order.
func (s *Service) EvaluateSession(traces []models.Trace, opts Options) []models.ModerationResult {
	results := make([]models.ModerationResult, 0, len(traces))
	for i := range traces {
		results = append(results, s.EvaluateTrace(&traces[i], opts))
	}
	return results
}

// EvaluateSessionContent screens the session's aggregated content as one
// document, for callers that do not need per-trace granularity.
func (s *Service) EvaluateSessionContent(session *models.Session, traces []models.Trace) models.ModerationResult {
	if len(traces) == 0 {
		return skipped(fmt.Sprintf("session %d has no traces", session.ID))
	}

	var parts []string
	for _, tr := range traces {
		if tr.Input != nil && *tr.Input != "" {
			parts = append(parts, *tr.Input)
		}
		if tr.Output != nil && *tr.Output != "" {
			parts = append(parts, *tr.Output)
		}
	}
	if len(parts) == 0 {
		return skipped(fmt.Sprintf("session %d has no content to screen", session.ID))
	}

	return s.screen(strings.Join(parts, "\n"))
}

// screen runs the policy over one piece of content.
func (s *Service) screen(content string) models.ModerationResult {
	var categories []string
	matchCounts := map[string]int{}
	var priority models.Priority

	for i := range s.policy.Categories {
		cat := &s.policy.Categories[i]
		matches := cat.Matches(content)
		if len(matches) == 0 {
			continue
		}
		categories = append(categories, cat.Name)
		matchCounts[cat.Name] = len(matches)
		if cat.Priority.Exceeds(priority) {
			priority = cat.Priority
		}
	}

	if len(categories) == 0 {
		return models.ModerationResult{Action: models.ActionPassed}
	}

	return models.ModerationResult{
		Action:   models.ActionFlagged,
		Priority: priority,
		Reason:   fmt.Sprintf("content matched policy categories: %s", strings.Join(categories, ", ")),
		Details: map[string]any{
			"categories":    categories,
			"match_counts":  matchCounts,
			"content_bytes": len(content),
		},
	}
}

func skipped(reason string) models.ModerationResult {
	return models.ModerationResult{
		Action: models.ActionSkipped,
		Reason: reason,
	}
}
