package policy

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the sentinel all configuration faults match via
// errors.Is. Rule failures are data in the result, never errors.
var ErrConfiguration = errors.New("invalid configuration")

type ErrorKind int

const (
	KindEmptyRuleSet ErrorKind = iota
	KindEmptyRuleID
	KindDuplicateRule
	KindBadCategory
	KindBadSignalValue
)

// ConfigurationError reports a malformed rule set or signal. It is always
// fatal to the call that produced it; malformed configuration cannot
// self-correct, so nothing retries it.
type ConfigurationError struct {
	Kind   ErrorKind
	RuleID string
}

func (e *ConfigurationError) Error() string {
	switch e.Kind {
	case KindEmptyRuleSet:
		return "policy: empty rule set"
	case KindEmptyRuleID:
		return "policy: rule with empty id"
	case KindDuplicateRule:
		return fmt.Sprintf("policy: duplicate rule id %q", e.RuleID)
	case KindBadCategory:
		return fmt.Sprintf("policy: rule %q has unknown category", e.RuleID)
	case KindBadSignalValue:
		return fmt.Sprintf("policy: signal for rule %q is not a boolean", e.RuleID)
	}
	return "policy: invalid configuration"
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
