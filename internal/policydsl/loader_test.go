package policydsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkgate/checkgate/internal/policy"
)

const samplePack = `
name: web-app-gate
rules:
  - id: tests-pass
    category: testing
    description: Unit tests pass with no skips
    required: true
  - id: lint-clean
    category: code_quality
    description: Linter reports no issues
  - id: no-secrets
    category: security
    description: No credentials or tokens in the diff
    required: true
  - id: changelog-entry
    category: documentation
    description: CHANGELOG updated
`

func TestParse_SamplePack(t *testing.T) {
	rs, name, err := Parse([]byte(samplePack))
	require.NoError(t, err)

	assert.Equal(t, "web-app-gate", name)
	require.Equal(t, 4, rs.Len())

	rules := rs.Rules()
	assert.Equal(t, "tests-pass", rules[0].ID)
	assert.Equal(t, policy.Testing, rules[0].Category)
	assert.True(t, rules[0].Required)
	assert.Equal(t, policy.CodeQuality, rules[1].Category)
	assert.False(t, rules[1].Required, "required defaults to advisory")
	assert.Equal(t, policy.Security, rules[2].Category)
	assert.Equal(t, policy.Documentation, rules[3].Category)
}

func TestParse_UnknownCategory(t *testing.T) {
	_, _, err := Parse([]byte("rules:\n  - id: x\n    category: vibes\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, policy.ErrConfiguration)

	var ce *policy.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, policy.KindBadCategory, ce.Kind)
	assert.Equal(t, "x", ce.RuleID)
}

func TestParse_DuplicateID(t *testing.T) {
	_, _, err := Parse([]byte(`
rules:
  - id: tests
    category: testing
  - id: tests
    category: testing
`))
	var ce *policy.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, policy.KindDuplicateRule, ce.Kind)
}

func TestParse_EmptyPack(t *testing.T) {
	_, _, err := Parse([]byte("name: empty\nrules: []\n"))
	assert.ErrorIs(t, err, policy.ErrConfiguration)
}

func TestParse_BadYAML(t *testing.T) {
	_, _, err := Parse([]byte("rules: [unclosed"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, policy.ErrConfiguration)
}
