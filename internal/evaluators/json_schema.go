package evaluators

import (
	"encoding/json"
	"fmt"

	"github.com/agentlens/agentlens/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// jsonSchema scores 1.0 when the actual output is valid JSON matching the
// configured schema, 0.0 otherwise. Boolean data type.
type jsonSchema struct {
	base
	schema *jsonschema.Schema
}

// NewJSONSchema creates a JSON schema evaluator. The schema is compiled at
// construction so a malformed schema fails loudly instead of per item.
func NewJSONSchema(name string, opts Options) (*jsonSchema, error) {
	if opts.Schema == nil {
		return nil, fmt.Errorf("json_schema evaluator requires a 'schema' option")
	}

	schema, err := compileSchema(opts.Schema)
	if err != nil {
		return nil, err
	}

	return &jsonSchema{
		base:   newBase(KindJSONSchema, name, opts.Comment),
		schema: schema,
	}, nil
}

func (j *jsonSchema) Kind() Kind                     { return KindJSONSchema }
func (j *jsonSchema) DataType() models.ScoreDataType { return models.DataTypeBoolean }

func (j *jsonSchema) Evaluate(item *models.RunItem) (*float64, error) {
	if !item.ActualOutput.Present {
		return nil, nil
	}

	value := 0.0

	// Strings are parsed; structured values are re-serialized through JSON so
	// the validator sees the same shapes it would from the wire.
	var doc any
	switch v := item.ActualOutput.Val.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &doc); err != nil {
			return &value, nil
		}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return &value, nil
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return &value, nil
		}
	}

	if err := j.schema.Validate(doc); err == nil {
		value = 1.0
	}
	return &value, nil
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	// Round-trip through JSON so numeric types match what the compiler expects.
	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema: %w", err)
	}
	var schemaValue any
	if err := json.Unmarshal(schemaJSON, &schemaValue); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schemaValue); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile JSON schema: %w", err)
	}
	return schema, nil
}
