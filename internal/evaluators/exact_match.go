package evaluators

import "github.com/agentlens/agentlens/internal/models"

// exactMatch scores 1.0 when the item's actual output equals its expected
// output, 0.0 otherwise. Boolean data type.
type exactMatch struct {
	base
}

// NewExactMatch creates an exact-match evaluator.
func NewExactMatch(name string, opts Options) *exactMatch {
	return &exactMatch{base: newBase(KindExactMatch, name, opts.Comment)}
}

func (e *exactMatch) Kind() Kind                     { return KindExactMatch }
func (e *exactMatch) DataType() models.ScoreDataType { return models.DataTypeBoolean }

func (e *exactMatch) Evaluate(item *models.RunItem) (*float64, error) {
	if item.ExpectedOutput.IsEmpty() {
		return nil, nil
	}

	value := 0.0
	if item.OutputMatches() {
		value = 1.0
	}
	return &value, nil
}
