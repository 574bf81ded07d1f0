package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is a free-form key/value mapping stored in a jsonb column.
// Readers must treat unknown keys as opaque.
type Metadata map[string]any

// Value implements driver.Valuer for jsonb columns.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for jsonb columns.
func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Metadata", src)
	}

	return json.Unmarshal(data, m)
}

// JSONValue holds an arbitrary JSON document stored in a jsonb column.
// The zero value represents SQL NULL.
type JSONValue struct {
	Val     any
	Present bool
}

// NewJSONValue wraps v as a present JSONValue.
func NewJSONValue(v any) JSONValue {
	return JSONValue{Val: v, Present: true}
}

// IsEmpty reports whether the value is NULL, nil, or an empty string.
func (j JSONValue) IsEmpty() bool {
	if !j.Present || j.Val == nil {
		return true
	}
	if s, ok := j.Val.(string); ok {
		return s == ""
	}
	return false
}

// CanonicalString returns a stable string form of the value: strings are
// returned as-is, everything else is JSON-serialized. Go's json package
// writes map keys in sorted order, which keeps the form stable across
// re-serialization.
func (j JSONValue) CanonicalString() string {
	if !j.Present || j.Val == nil {
		return ""
	}
	if s, ok := j.Val.(string); ok {
		return s
	}
	data, err := json.Marshal(j.Val)
	if err != nil {
		return fmt.Sprintf("%v", j.Val)
	}
	return string(data)
}

// Value implements driver.Valuer for jsonb columns.
func (j JSONValue) Value() (driver.Value, error) {
	if !j.Present {
		return nil, nil
	}
	return json.Marshal(j.Val)
}

// Scan implements sql.Scanner for jsonb columns.
func (j *JSONValue) Scan(src any) error {
	if src == nil {
		*j = JSONValue{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONValue", src)
	}

	var val any
	if err := json.Unmarshal(data, &val); err != nil {
		return err
	}
	*j = JSONValue{Val: val, Present: true}
	return nil
}

// MarshalJSON renders the wrapped value, or null when absent.
func (j JSONValue) MarshalJSON() ([]byte, error) {
	if !j.Present {
		return []byte("null"), nil
	}
	return json.Marshal(j.Val)
}

// UnmarshalJSON wraps the decoded value. A JSON null becomes an absent value.
func (j *JSONValue) UnmarshalJSON(data []byte) error {
	var val any
	if err := json.Unmarshal(data, &val); err != nil {
		return err
	}
	if val == nil {
		*j = JSONValue{}
		return nil
	}
	*j = JSONValue{Val: val, Present: true}
	return nil
}
