package fuzz

import (
	"testing"

	"github.com/checkgate/checkgate/internal/policy"
	"github.com/checkgate/checkgate/internal/policydsl"
	"github.com/checkgate/checkgate/internal/signals"
)

func FuzzParsePolicyPack(f *testing.F) {
	f.Add([]byte("rules:\n  - id: tests\n    category: testing\n    required: true\n"))
	f.Add([]byte("name: x\nrules: []\n"))
	f.Add([]byte("rules:\n  - id: a\n    category: vibes\n"))
	f.Add([]byte("{"))
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, data []byte) {
		rs, _, err := policydsl.Parse(data)
		if err != nil {
			return
		}
		// any pack that parses must evaluate without panicking
		if _, err := policy.Evaluate(rs, policy.Signal{"tests": true}); err != nil {
			t.Fatalf("valid pack failed to evaluate: %v", err)
		}
	})
}

func FuzzParseSignals(f *testing.F) {
	rs, err := policy.NewRuleSet([]policy.Rule{
		{ID: "tests", Category: policy.Testing, Required: true},
	})
	if err != nil {
		f.Fatal(err)
	}

	f.Add([]byte("tests: true\n"))
	f.Add([]byte("tests: maybe\n"))
	f.Add([]byte(`{"tests": 1}`))
	f.Add([]byte("- a\n- b\n"))

	f.Fuzz(func(t *testing.T, data []byte) {
		sig, err := signals.Parse(data, rs)
		if err != nil {
			return
		}
		if _, err := policy.Evaluate(rs, sig); err != nil {
			t.Fatalf("parsed signal failed to evaluate: %v", err)
		}
	})
}
