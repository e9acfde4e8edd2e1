// Package signals decodes the observed-fact files produced by external
// tooling (test runners, linters, scanners) into a typed policy.Signal.
// The file is a flat YAML/JSON mapping of rule ID to boolean:
//
//	tests-pass: true
//	lint-clean: false
package signals

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/checkgate/checkgate/internal/policy"
)

// LoadFile reads and decodes a signal file against rs.
func LoadFile(path string, rs *policy.RuleSet) (policy.Signal, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signals: %w", err)
	}
	return Parse(b, rs)
}

// Parse decodes raw signal bytes. A non-boolean value for a rule present in
// rs is a configuration fault naming that rule; strings like "true" are not
// coerced. Entries for unknown rule IDs are dropped when non-boolean and
// kept otherwise (Evaluate ignores them anyway).
func Parse(b []byte, rs *policy.RuleSet) (policy.Signal, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse signals: %w", err)
	}

	sig := make(policy.Signal, len(raw))
	for key, val := range raw {
		id := strings.TrimSpace(key)
		rule, known := rs.Get(id)
		v, isBool := val.(bool)
		if !isBool {
			if known {
				return nil, &policy.ConfigurationError{Kind: policy.KindBadSignalValue, RuleID: rule.ID}
			}
			continue
		}
		if known {
			// Key the signal by the canonical rule ID so case or
			// whitespace drift in tool output still matches.
			sig[rule.ID] = v
		} else {
			sig[id] = v
		}
	}
	return sig, nil
}
