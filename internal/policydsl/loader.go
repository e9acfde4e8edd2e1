package policydsl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/checkgate/checkgate/internal/policy"
)

// Pack is the on-disk policy format:
//
//	name: default-gate
//	rules:
//	  - id: tests-pass
//	    category: testing
//	    description: Unit tests pass with no skips
//	    required: true
type Pack struct {
	Name  string     `yaml:"name"`
	Rules []PackRule `yaml:"rules"`
}

type PackRule struct {
	ID          string `yaml:"id"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Load reads a policy pack from path and builds the rule set. Structural
// faults (empty pack, duplicate IDs, unknown categories) come back as
// policy.ConfigurationError via NewRuleSet.
func Load(path string) (*policy.RuleSet, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read policy pack: %w", err)
	}
	return Parse(b)
}

// Parse builds a rule set from raw pack bytes.
func Parse(b []byte) (*policy.RuleSet, string, error) {
	var pack Pack
	if err := yaml.Unmarshal(b, &pack); err != nil {
		return nil, "", fmt.Errorf("parse policy yaml: %w", err)
	}
	rules := make([]policy.Rule, 0, len(pack.Rules))
	for _, pr := range pack.Rules {
		cat, ok := policy.ParseCategory(pr.Category)
		if !ok {
			return nil, "", &policy.ConfigurationError{Kind: policy.KindBadCategory, RuleID: pr.ID}
		}
		rules = append(rules, policy.Rule{
			ID:          pr.ID,
			Category:    cat,
			Description: pr.Description,
			Required:    pr.Required,
		})
	}
	rs, err := policy.NewRuleSet(rules)
	if err != nil {
		return nil, "", err
	}
	return rs, pack.Name, nil
}
