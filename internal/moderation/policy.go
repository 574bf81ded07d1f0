// Package moderation screens trace and session content against a
// content-safety policy and classifies the outcome. The service is pure:
// logging and persistence of results belong to the guardrail job.
package moderation

import (
	"fmt"
	"os"
	"regexp"

	"github.com/agentlens/agentlens/internal/models"
	"gopkg.in/yaml.v3"
)

// Category is one policy rule: content matching any of its patterns is
// flagged under the category's name at its priority.
type Category struct {
	Name     string
	Priority models.Priority
	patterns []*regexp.Regexp
}

// Matches returns the pattern matches found in content, if any.
func (c *Category) Matches(content string) []string {
	var found []string
	for _, p := range c.patterns {
		found = append(found, p.FindAllString(content, -1)...)
	}
	return found
}

// Policy is an ordered set of moderation categories.
type Policy struct {
	Categories []Category
}

type policyFile struct {
	Categories []struct {
		Name     string   `yaml:"name"`
		Priority string   `yaml:"priority"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"categories"`
}

// NewCategory compiles one category. Patterns are standard Go regexps;
// word-level keywords should be written as `\bword\b`.
func NewCategory(name string, priority models.Priority, patterns []string) (Category, error) {
	cat := Category{Name: name, Priority: priority}
	for _, pat := range patterns {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return Category{}, fmt.Errorf("category %q: invalid pattern %q: %w", name, pat, err)
		}
		cat.patterns = append(cat.patterns, re)
	}
	return cat, nil
}

// LoadPolicy reads a policy from a YAML file. An empty path returns the
// built-in default policy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read moderation policy %q: %w", path, err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse moderation policy %q: %w", path, err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("moderation policy %q defines no categories", path)
	}

	policy := &Policy{}
	for _, c := range file.Categories {
		cat, err := NewCategory(c.Name, models.Priority(c.Priority), c.Patterns)
		if err != nil {
			return nil, err
		}
		policy.Categories = append(policy.Categories, cat)
	}
	return policy, nil
}

// DefaultPolicy covers PII exposure and violent or hateful content with
// simple pattern heuristics.
func DefaultPolicy() *Policy {
	mustCategory := func(name string, priority models.Priority, patterns []string) Category {
		cat, err := NewCategory(name, priority, patterns)
		if err != nil {
			panic(err)
		}
		return cat
	}

	return &Policy{Categories: []Category{
		mustCategory("pii", models.PriorityHigh, []string{
			// Email
			`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
			// Phone (US format)
			`\b\d{3}-\d{3}-\d{4}\b`,
			// SSN (US format)
			`\b\d{3}-\d{2}-\d{4}\b`,
			// Credit card
			`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`,
		}),
		mustCategory("violence", models.PriorityHigh, []string{
			`\bkill\b`, `\bmurder\b`, `\bviolence\b`, `\battack\b`,
		}),
		mustCategory("hate", models.PriorityMedium, []string{
			`\bhate\b`, `\bdiscrimination\b`, `\bslur\b`,
		}),
	}}
}
