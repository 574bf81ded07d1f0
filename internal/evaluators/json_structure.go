package evaluators

import (
	"encoding/json"

	"github.com/agentlens/agentlens/internal/models"
)

// jsonStructure scores the fraction of required keys present in the actual
// output once parsed as a JSON object. Required keys come from options or
// from the keys of a mapping expected output.
type jsonStructure struct {
	base
	requiredKeys []string
}

// NewJSONStructure creates a JSON key-presence evaluator.
func NewJSONStructure(name string, opts Options) *jsonStructure {
	return &jsonStructure{
		base:         newBase(KindJSONStructure, name, opts.Comment),
		requiredKeys: opts.RequiredKeys,
	}
}

func (j *jsonStructure) Kind() Kind                     { return KindJSONStructure }
func (j *jsonStructure) DataType() models.ScoreDataType { return models.DataTypeNumeric }

func (j *jsonStructure) Evaluate(item *models.RunItem) (*float64, error) {
	keys := j.requiredKeysFor(item)
	if len(keys) == 0 {
		return nil, nil
	}

	value := 0.0
	obj := parseObject(item.ActualOutput)
	if obj == nil {
		// Unparseable or not an object.
		return &value, nil
	}

	present := 0
	for _, key := range keys {
		if _, ok := obj[key]; ok {
			present++
		}
	}

	value = float64(present) / float64(len(keys))
	return &value, nil
}

func (j *jsonStructure) requiredKeysFor(item *models.RunItem) []string {
	if len(j.requiredKeys) > 0 {
		return j.requiredKeys
	}
	if m, ok := item.ExpectedOutput.Val.(map[string]any); ok && item.ExpectedOutput.Present {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		return keys
	}
	return nil
}

// parseObject returns the actual output as a JSON object: strings are
// parsed, mappings are used as-is, anything else is treated as unparseable.
func parseObject(v models.JSONValue) map[string]any {
	if !v.Present {
		return nil
	}
	switch val := v.Val.(type) {
	case map[string]any:
		return val
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(val), &obj); err != nil {
			return nil
		}
		return obj
	default:
		return nil
	}
}
