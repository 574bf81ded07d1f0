package evaluators

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec is one evaluator entry in a YAML evaluator-set file:
//
//	evaluators:
//	  - type: contains
//	    name: greeting_keywords
//	    params:
//	      keywords: [hello, hi]
type Spec struct {
	Type   string         `yaml:"type"`
	Name   string         `yaml:"name,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`
}

type specFile struct {
	Evaluators []Spec `yaml:"evaluators"`
}

// LoadSpecs reads an evaluator-set file and builds its evaluators. An empty
// path returns the default set.
func LoadSpecs(path string) ([]Evaluator, error) {
	if path == "" {
		return Defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read evaluator config %q: %w", path, err)
	}

	var file specFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse evaluator config %q: %w", path, err)
	}
	if len(file.Evaluators) == 0 {
		return nil, fmt.Errorf("evaluator config %q defines no evaluators", path)
	}

	evs := make([]Evaluator, 0, len(file.Evaluators))
	seen := map[string]bool{}
	for _, spec := range file.Evaluators {
		ev, err := Create(Kind(spec.Type), spec.Name, spec.Params)
		if err != nil {
			return nil, err
		}
		if seen[ev.Name()] {
			return nil, fmt.Errorf("duplicate evaluator name %q: score names must be unique within a set", ev.Name())
		}
		seen[ev.Name()] = true
		evs = append(evs, ev)
	}
	return evs, nil
}
