package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRulesMissingFileUsesDefaults(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, rules.TrendKeywords)
	assert.NotEmpty(t, rules.Drilldown)
}

func TestLoadRulesOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := []byte(`
trend_keywords: ["weekly"]
drilldown:
  - table: shipments
    field_contains: carrier
    kind: exact
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"weekly"}, rules.TrendKeywords)
	require.Len(t, rules.Drilldown, 1)
	assert.Equal(t, "shipments", rules.Drilldown[0].Table)
	// Unspecified sections keep their defaults.
	assert.NotEmpty(t, rules.RatioKeywords)
	assert.NotEmpty(t, rules.TimeColumnHints)
}

func TestLoadRulesRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trend_keywords: [unclosed"), 0o644))

	_, err := LoadRules(path)
	assert.Error(t, err)
}
