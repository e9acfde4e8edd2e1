package policy

import "strings"

// Outcome of a single rule for one evaluation.
type Outcome string

const (
	Pass Outcome = "PASS"
	Fail Outcome = "FAIL"
	// NotEvaluated means no signal was supplied for the rule. For a
	// required rule this blocks the aggregate verdict: an unmeasured
	// requirement is never silently treated as satisfied.
	NotEvaluated Outcome = "NOT_EVALUATED"
)

// Status is the aggregate verdict.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

type RuleResult struct {
	RuleID   string   `json:"rule_id"`
	Category Category `json:"category"`
	Required bool     `json:"required"`
	Outcome  Outcome  `json:"outcome"`
	Waived   bool     `json:"waived,omitempty"`
}

// EvaluationResult holds per-rule outcomes in rule-set order plus the
// aggregate verdict. RequiredFailures lists required rules that are FAIL or
// NOT_EVALUATED; OptionalFailures lists failing advisory rules.
type EvaluationResult struct {
	Status           Status       `json:"status"`
	Rules            []RuleResult `json:"rules"`
	RequiredFailures []string     `json:"required_failures,omitempty"`
	OptionalFailures []string     `json:"optional_failures,omitempty"`
	WaivedRules      []string     `json:"waived_rules,omitempty"`
}

// Evaluate scores one signal against one rule set. It is a pure function:
// deterministic, no I/O, no logging, inputs never mutated, safe for
// concurrent callers. The only error is a ConfigurationError for a
// malformed rule set; individual rule failures are data in the result.
func Evaluate(rs *RuleSet, signal Signal) (EvaluationResult, error) {
	if rs == nil || len(rs.rules) == 0 {
		return EvaluationResult{}, &ConfigurationError{Kind: KindEmptyRuleSet}
	}
	seen := make(map[string]struct{}, len(rs.rules))
	for _, r := range rs.rules {
		key := strings.ToUpper(r.ID)
		if _, dup := seen[key]; dup {
			return EvaluationResult{}, &ConfigurationError{Kind: KindDuplicateRule, RuleID: r.ID}
		}
		seen[key] = struct{}{}
	}

	res := EvaluationResult{
		Status: StatusPass,
		Rules:  make([]RuleResult, 0, len(rs.rules)),
	}
	for _, r := range rs.rules {
		out := NotEvaluated
		if ok, present := signal[r.ID]; present {
			if ok {
				out = Pass
			} else {
				out = Fail
			}
		}
		res.Rules = append(res.Rules, RuleResult{
			RuleID:   r.ID,
			Category: r.Category,
			Required: r.Required,
			Outcome:  out,
		})
		if r.Required && out != Pass {
			res.Status = StatusFail
			res.RequiredFailures = append(res.RequiredFailures, r.ID)
		}
		if !r.Required && out == Fail {
			res.OptionalFailures = append(res.OptionalFailures, r.ID)
		}
	}
	return res, nil
}
