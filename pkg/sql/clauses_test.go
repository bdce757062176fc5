package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClauses(t *testing.T) {
	query := `SELECT strftime(create_time, '%Y-%m') AS 月份, COUNT(*) AS cnt
FROM fire_alarm_record
WHERE create_time >= '2024-01-01'
GROUP BY 月份
ORDER BY 月份
LIMIT 100`

	c := ParseClauses(query)
	assert.Equal(t, "fire_alarm_record", c.FromTable)
	assert.Equal(t, []string{"月份"}, c.GroupBy)
	assert.Equal(t, "create_time >= '2024-01-01'", c.Where)
	assert.Equal(t, "月份", c.OrderBy)
	assert.Equal(t, 100, c.Limit)
	assert.Equal(t, []string{"COUNT"}, c.Aggregates)
}

func TestParseClausesMultipleAggregates(t *testing.T) {
	c := ParseClauses("SELECT unit_name, COUNT(*), sum(cost), AVG(delay) FROM alarms GROUP BY unit_name")
	assert.Equal(t, []string{"COUNT", "SUM", "AVG"}, c.Aggregates)
	assert.Equal(t, []string{"unit_name"}, c.GroupBy)
	assert.Zero(t, c.Limit)
}

func TestParseClausesPlainSelect(t *testing.T) {
	c := ParseClauses("SELECT * FROM docs")
	assert.Equal(t, "docs", c.FromTable)
	assert.Empty(t, c.GroupBy)
	assert.Empty(t, c.Aggregates)
	assert.Empty(t, c.Where)
}

func TestEnsureLimit(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t LIMIT 500", EnsureLimit("SELECT * FROM t", 500))
	assert.Equal(t, "SELECT * FROM t LIMIT 10", EnsureLimit("SELECT * FROM t LIMIT 10", 500))
	assert.Equal(t, "SELECT * FROM t LIMIT 500", EnsureLimit("SELECT * FROM t LIMIT 9999", 500))
}

func TestEnsureLimitLeavesSubqueryLimitsAlone(t *testing.T) {
	// A subquery LIMIT is not an outer bound; the statement still gets one.
	assert.Equal(t,
		"SELECT * FROM (SELECT id FROM t LIMIT 10) sub LIMIT 500",
		EnsureLimit("SELECT * FROM (SELECT id FROM t LIMIT 10) sub", 500))

	// Lowering an oversized trailing LIMIT must not rewrite inner ones.
	assert.Equal(t,
		"SELECT * FROM (SELECT id FROM t LIMIT 10) sub LIMIT 500",
		EnsureLimit("SELECT * FROM (SELECT id FROM t LIMIT 10) sub LIMIT 9999", 500))

	// A trailing OFFSET survives the rewrite.
	assert.Equal(t,
		"SELECT * FROM t LIMIT 500 OFFSET 20",
		EnsureLimit("SELECT * FROM t LIMIT 9999 OFFSET 20", 500))
}
