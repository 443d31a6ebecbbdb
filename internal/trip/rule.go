// Package trip evaluates streams of security telemetry events against
// declarative rules and emits signed incidents when a rule fires.
package trip

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Condition types.
const (
	CondThreshold = "threshold"
	CondMatch     = "match"
	CondExists    = "exists"
	CondAnd       = "and"
	CondOr        = "or"
)

// Threshold comparison operators.
var thresholdOps = map[string]bool{
	"gt": true, "gte": true, "eq": true, "lt": true, "lte": true,
}

// Condition is a tagged variant: Type selects which fields apply.
// Value is loose because rules compare against mixed scalar types —
// a count for threshold, any JSON scalar for match.
type Condition struct {
	Type    string      `yaml:"type" json:"type"`
	Field   string      `yaml:"field,omitempty" json:"field,omitempty"`
	Op      string      `yaml:"op,omitempty" json:"op,omitempty"`
	Value   any         `yaml:"value,omitempty" json:"value,omitempty"`
	WindowS int         `yaml:"window_s,omitempty" json:"window_s,omitempty"`
	Window  int         `yaml:"window,omitempty" json:"window,omitempty"` // legacy alias for window_s
	Clauses []Condition `yaml:"clauses,omitempty" json:"clauses,omitempty"`
}

// windowSeconds resolves the effective window, defaulting to 60s.
func (c *Condition) windowSeconds() int {
	if c.WindowS > 0 {
		return c.WindowS
	}
	if c.Window > 0 {
		return c.Window
	}
	return 60
}

// thresholdValue coerces Value to the numeric threshold.
func (c *Condition) thresholdValue() (float64, bool) {
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// validate rejects malformed condition trees. A malformed rule is
// logged and skipped, never fatal to the evaluation loop.
func (c *Condition) validate() error {
	switch c.Type {
	case CondThreshold:
		if c.Field == "" {
			return fmt.Errorf("threshold condition requires field")
		}
		if c.Op != "" && !thresholdOps[c.Op] {
			return fmt.Errorf("threshold condition has unknown op %q", c.Op)
		}
		if _, ok := c.thresholdValue(); !ok {
			return fmt.Errorf("threshold condition requires numeric value")
		}
	case CondMatch:
		if c.Field == "" {
			return fmt.Errorf("match condition requires field")
		}
	case CondExists:
		if c.Field == "" {
			return fmt.Errorf("exists condition requires field")
		}
	case CondAnd, CondOr:
		if len(c.Clauses) == 0 {
			return fmt.Errorf("%s condition requires clauses", c.Type)
		}
		for i := range c.Clauses {
			if err := c.Clauses[i].validate(); err != nil {
				return fmt.Errorf("clauses[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	return nil
}

// Rule is one declarative trip rule.
type Rule struct {
	ID         string     `yaml:"id" json:"id"`
	Name       string     `yaml:"name,omitempty" json:"name,omitempty"`
	SubjectKey string     `yaml:"subject_key,omitempty" json:"subject_key,omitempty"`
	Condition  *Condition `yaml:"condition" json:"condition"`
}

// Validate checks the rule definition.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule has no id")
	}
	if r.Condition == nil {
		return fmt.Errorf("rule %s has no condition", r.ID)
	}
	if err := r.Condition.validate(); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return nil
}

// subjectKey returns the event field identifying the subject, "uid" by
// default.
func (r *Rule) subjectKey() string {
	if r.SubjectKey != "" {
		return r.SubjectKey
	}
	return "uid"
}

// RuleSet is the loaded rules document.
type RuleSet struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

// LoadRules reads a rules file. YAML and JSON are both accepted; .json
// files are decoded strictly as JSON to keep error messages honest.
// A missing file yields an empty set.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &RuleSet{}, nil
		}
		return nil, fmt.Errorf("trip: read rules: %w", err)
	}

	var rs RuleSet
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("trip: parse rules: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("trip: parse rules: %w", err)
		}
	}
	return &rs, nil
}
