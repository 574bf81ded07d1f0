package evaluators

import (
	"fmt"
	"strings"

	"github.com/agentlens/agentlens/internal/models"
)

// contains scores the fraction of keywords found in the actual output using
// case-insensitive substring matching. Keywords come from options or are
// extracted from the item's expected output.
type contains struct {
	base
	keywords []string
}

// NewContains creates a keyword-containment evaluator.
func NewContains(name string, opts Options) *contains {
	return &contains{
		base:     newBase(KindContains, name, opts.Comment),
		keywords: opts.Keywords,
	}
}

func (c *contains) Kind() Kind                     { return KindContains }
func (c *contains) DataType() models.ScoreDataType { return models.DataTypeNumeric }

func (c *contains) Evaluate(item *models.RunItem) (*float64, error) {
	keywords := c.keywordsFor(item)
	if len(keywords) == 0 {
		return nil, nil
	}

	actual := item.ActualOutput.CanonicalString()
	value := 0.0
	if strings.TrimSpace(actual) == "" {
		return &value, nil
	}

	actualLower := strings.ToLower(actual)
	found := 0
	for _, kw := range keywords {
		if strings.Contains(actualLower, strings.ToLower(kw)) {
			found++
		}
	}

	value = float64(found) / float64(len(keywords))
	return &value, nil
}

// keywordsFor resolves the keyword set: explicit options win; otherwise the
// expected output supplies them as a {"keywords": [...]} mapping, a sequence,
// or a single string coerced to a one-element set.
func (c *contains) keywordsFor(item *models.RunItem) []string {
	if len(c.keywords) > 0 {
		return c.keywords
	}
	if item.ExpectedOutput.IsEmpty() {
		return nil
	}

	switch v := item.ExpectedOutput.Val.(type) {
	case map[string]any:
		return toStringSlice(v["keywords"])
	case []any:
		return toStringSlice(v)
	case string:
		return []string{v}
	default:
		return nil
	}
}

func toStringSlice(v any) []string {
	switch vals := v.(type) {
	case nil:
		return nil
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, e := range vals {
			out = append(out, fmt.Sprintf("%v", e))
		}
		return out
	case string:
		if vals == "" {
			return nil
		}
		return []string{vals}
	default:
		return nil
	}
}
