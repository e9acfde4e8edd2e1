package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkgate/checkgate/internal/policy"
)

func testRuleSet(t *testing.T) *policy.RuleSet {
	t.Helper()
	rs, err := policy.NewRuleSet([]policy.Rule{
		{ID: "tests-pass", Category: policy.Testing, Required: true},
		{ID: "lint-clean", Category: policy.CodeQuality},
	})
	require.NoError(t, err)
	return rs
}

func TestParse_YAML(t *testing.T) {
	sig, err := Parse([]byte("tests-pass: true\nlint-clean: false\n"), testRuleSet(t))
	require.NoError(t, err)
	assert.Equal(t, policy.Signal{"tests-pass": true, "lint-clean": false}, sig)
}

func TestParse_JSONIsValidYAML(t *testing.T) {
	sig, err := Parse([]byte(`{"tests-pass": true, "lint-clean": true}`), testRuleSet(t))
	require.NoError(t, err)
	assert.True(t, sig["tests-pass"])
	assert.True(t, sig["lint-clean"])
}

func TestParse_NonBooleanForKnownRule(t *testing.T) {
	_, err := Parse([]byte(`tests-pass: "true"`), testRuleSet(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, policy.ErrConfiguration)

	var ce *policy.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, policy.KindBadSignalValue, ce.Kind)
	assert.Equal(t, "tests-pass", ce.RuleID)
}

func TestParse_NonBooleanForUnknownKeyDropped(t *testing.T) {
	sig, err := Parse([]byte("tests-pass: true\ncoverage-pct: 81.4\n"), testRuleSet(t))
	require.NoError(t, err)
	_, present := sig["coverage-pct"]
	assert.False(t, present)
}

func TestParse_CanonicalizesKeyCase(t *testing.T) {
	sig, err := Parse([]byte("TESTS-PASS: true\n"), testRuleSet(t))
	require.NoError(t, err)
	assert.Equal(t, policy.Signal{"tests-pass": true}, sig)
}

func TestParse_KeyOrderIrrelevant(t *testing.T) {
	rs := testRuleSet(t)
	a, err := Parse([]byte("tests-pass: true\nlint-clean: false\n"), rs)
	require.NoError(t, err)
	b, err := Parse([]byte("lint-clean: false\ntests-pass: true\n"), rs)
	require.NoError(t, err)

	ra, err := policy.Evaluate(rs, a)
	require.NoError(t, err)
	rb, err := policy.Evaluate(rs, b)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
}
