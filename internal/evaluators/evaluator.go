// Package evaluators scores run items against pluggable strategies. Each
// evaluator is a pure function over a run item's expected and actual outputs;
// Apply is the persistence boundary that turns a value into an upserted score.
package evaluators

import (
	"context"
	"fmt"

	"github.com/agentlens/agentlens/internal/models"
	"github.com/go-viper/mapstructure/v2"
)

// Kind identifies an evaluator strategy. The lowercase identifier doubles as
// the default score name, so it must remain stable across releases — renaming
// a kind would orphan previously written score rows.
type Kind string

const (
	KindExactMatch    Kind = "exact_match"
	KindContains      Kind = "contains"
	KindJSONStructure Kind = "json_structure"
	KindJSONSchema    Kind = "json_schema"
)

// Evaluator is the interface for all scoring strategies.
type Evaluator interface {
	// Name returns the score name this evaluator writes under. Part of the
	// score upsert key.
	Name() string

	// Kind returns the strategy identifier.
	Kind() Kind

	// DataType describes the score values this evaluator produces.
	DataType() models.ScoreDataType

	// Comment returns the optional free-text comment attached to scores.
	Comment() *string

	// Evaluate inspects the run item's outputs and returns a score in
	// [0.0, 1.0], or nil when no judgment can be made (for example, no
	// expectation was supplied). It is pure and side-effect-free.
	Evaluate(item *models.RunItem) (*float64, error)
}

// base carries the fields shared by every evaluator.
type base struct {
	name    string
	comment *string
}

func (b base) Name() string     { return b.name }
func (b base) Comment() *string { return b.comment }

func newBase(kind Kind, name, comment string) base {
	b := base{name: name}
	if b.name == "" {
		b.name = string(kind)
	}
	if comment != "" {
		b.comment = &comment
	}
	return b
}

// Options recognized across evaluator kinds. Unrecognized keys are ignored;
// each constructor decodes only the keys it understands.
type Options struct {
	// Keywords overrides keyword extraction for the contains evaluator.
	Keywords []string `mapstructure:"keywords"`
	// RequiredKeys overrides key extraction for the json_structure evaluator.
	RequiredKeys []string `mapstructure:"required_keys"`
	// Schema is the inline JSON schema for the json_schema evaluator.
	Schema map[string]any `mapstructure:"schema"`
	// Comment is attached to every score the evaluator writes.
	Comment string `mapstructure:"comment"`
}

// Create builds an evaluator from the registry. An empty name selects the
// kind's stable default. Params are decoded leniently — unknown keys pass
// through unused, matching how evaluator configuration has historically
// behaved.
func Create(kind Kind, name string, params map[string]any) (Evaluator, error) {
	var opts Options
	if err := mapstructure.Decode(params, &opts); err != nil {
		return nil, fmt.Errorf("invalid options for %s evaluator: %w", kind, err)
	}

	switch kind {
	case KindExactMatch:
		return NewExactMatch(name, opts), nil
	case KindContains:
		return NewContains(name, opts), nil
	case KindJSONStructure:
		return NewJSONStructure(name, opts), nil
	case KindJSONSchema:
		return NewJSONSchema(name, opts)
	default:
		return nil, fmt.Errorf("'%s' is not a valid evaluator kind", kind)
	}
}

// Defaults returns the evaluator set applied when a dataset run does not
// configure its own.
func Defaults() []Evaluator {
	return []Evaluator{
		NewExactMatch("", Options{}),
		NewContains("", Options{}),
		NewJSONStructure("", Options{}),
	}
}

// ScoreWriter persists scores. Satisfied by *store.Store.
type ScoreWriter interface {
	UpsertScore(ctx context.Context, score *models.Score) error
}

// Apply is the public entry point for scoring one run item: it returns nil
// immediately when the item has no associated trace (the record is not yet
// complete), otherwise evaluates and — when a value came back — upserts the
// score under the evaluator's name with source programmatic.
func Apply(ctx context.Context, ev Evaluator, item *models.RunItem, scores ScoreWriter) (*float64, error) {
	if item.TraceID == nil {
		return nil, nil
	}

	value, err := ev.Evaluate(item)
	if err != nil {
		return nil, fmt.Errorf("%s evaluator failed on run item %d: %w", ev.Name(), item.ID, err)
	}
	if value == nil {
		return nil, nil
	}

	score := &models.Score{
		OwnerType: models.OwnerRunItem,
		OwnerID:   item.ID,
		Name:      ev.Name(),
		Source:    models.SourceProgrammatic,
		DataType:  ev.DataType(),
		Value:     *value,
		Comment:   ev.Comment(),
	}
	if err := scores.UpsertScore(ctx, score); err != nil {
		return nil, err
	}
	return value, nil
}
