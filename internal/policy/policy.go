package policy

import "strings"

const Version = "1.0"

// Category classifies a rule. The set is fixed; anything else is rejected
// when the rule set is built.
type Category string

const (
	CodeQuality   Category = "CODE_QUALITY"
	Testing       Category = "TESTING"
	Security      Category = "SECURITY"
	Documentation Category = "DOCUMENTATION"
)

// ParseCategory accepts the canonical form plus the relaxed spellings used
// in policy packs ("testing", "code-quality", "CodeQuality").
func ParseCategory(s string) (Category, bool) {
	n := strings.ToUpper(strings.TrimSpace(s))
	n = strings.ReplaceAll(n, "-", "_")
	switch n {
	case "CODE_QUALITY", "CODEQUALITY":
		return CodeQuality, true
	case "TESTING":
		return Testing, true
	case "SECURITY":
		return Security, true
	case "DOCUMENTATION", "DOCS":
		return Documentation, true
	}
	return "", false
}

// Rule is a single named gate criterion.
type Rule struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
	// Required rules block the aggregate verdict on failure; advisory
	// (required=false) rules are surfaced but never block.
	Required bool `json:"required"`
}

// RuleSet is an immutable, ordered policy. Build one with NewRuleSet;
// the zero value is invalid and Evaluate rejects it.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet validates and freezes a policy. Rule IDs are trimmed and must
// be unique (case-insensitive); the insertion order is preserved for
// reporting.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, &ConfigurationError{Kind: KindEmptyRuleSet}
	}
	out := make([]Rule, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" {
			return nil, &ConfigurationError{Kind: KindEmptyRuleID}
		}
		key := strings.ToUpper(r.ID)
		if _, dup := seen[key]; dup {
			return nil, &ConfigurationError{Kind: KindDuplicateRule, RuleID: r.ID}
		}
		seen[key] = struct{}{}
		switch r.Category {
		case CodeQuality, Testing, Security, Documentation:
		default:
			return nil, &ConfigurationError{Kind: KindBadCategory, RuleID: r.ID}
		}
		out[i] = r
	}
	return &RuleSet{rules: out}, nil
}

// Rules returns a copy so callers cannot mutate the set.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

func (rs *RuleSet) Len() int { return len(rs.rules) }

// Get returns a rule by ID (case-insensitive), if present.
func (rs *RuleSet) Get(id string) (Rule, bool) {
	for _, r := range rs.rules {
		if strings.EqualFold(r.ID, strings.TrimSpace(id)) {
			return r, true
		}
	}
	return Rule{}, false
}

// Signal carries the externally measured outcomes for one evaluation,
// keyed by rule ID. It is caller-owned and never mutated here.
type Signal map[string]bool
