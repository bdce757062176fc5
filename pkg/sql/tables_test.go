package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
)

func TestExtractReferencedTables(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "single table",
			query: "SELECT * FROM fire_alarm_record",
			want:  []string{"fire_alarm_record"},
		},
		{
			name:  "join",
			query: "SELECT * FROM a JOIN b ON a.id = b.id LEFT JOIN c ON b.id = c.id",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "cte excluded",
			query: "WITH a AS (SELECT 1), b AS (SELECT * FROM a) SELECT * FROM b JOIN real_table ON 1=1",
			want:  []string{"real_table"},
		},
		{
			name:  "recursive cte",
			query: "WITH RECURSIVE nums AS (SELECT 1 AS n UNION ALL SELECT n+1 FROM nums WHERE n < 10) SELECT * FROM nums JOIN facts ON 1=1",
			want:  []string{"facts"},
		},
		{
			name:  "cte with column list",
			query: "WITH totals (unit, cnt) AS (SELECT unit_name, COUNT(*) FROM alarms GROUP BY unit_name) SELECT * FROM totals",
			want:  []string{"alarms"},
		},
		{
			name:  "nested parens inside cte body",
			query: "WITH x AS (SELECT (1 + (2 * 3)) AS v FROM base) SELECT * FROM x",
			want:  []string{"base"},
		},
		{
			name:  "subquery in from is skipped",
			query: "SELECT * FROM (SELECT * FROM inner_table) AS t",
			want:  []string{"inner_table"},
		},
		{
			name:  "case insensitive dedupe",
			query: "SELECT * FROM Sales UNION ALL SELECT * FROM sales",
			want:  []string{"sales"},
		},
		{
			name:  "from keyword inside string literal",
			query: "SELECT 'copied FROM somewhere' AS note FROM docs",
			want:  []string{"docs", "somewhere"},
		},
		{
			name:  "no tables",
			query: "SELECT 1",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractReferencedTables(tt.query))
		})
	}
}

func TestExtractReferencedTablesIsDeterministic(t *testing.T) {
	query := "SELECT * FROM zeta JOIN alpha ON 1=1 JOIN mid ON 1=1"
	first := ExtractReferencedTables(query)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ExtractReferencedTables(query))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, first)
}

func TestCheckAllowed(t *testing.T) {
	allowed := map[string]struct{}{
		"fire_alarm_record": {},
		"sales__orders":     {},
	}

	assert.NoError(t, CheckAllowed("SELECT * FROM fire_alarm_record JOIN sales__orders ON 1=1", allowed))

	err := CheckAllowed("SELECT * FROM fire_alarm_record JOIN secrets ON 1=1", allowed)
	var unauthorized *apperrors.UnauthorizedTableError
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, []string{"secrets"}, unauthorized.Tables)
}

func TestCheckAllowedRejectsQuotedTableTargets(t *testing.T) {
	allowed := map[string]struct{}{"fire_alarm_record": {}}

	// A quoted target names a real table while contributing nothing to the
	// referenced-table scan, so it must not pass the allow-list.
	err := CheckAllowed(`SELECT * FROM "fire_alarm_record"`, allowed)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = CheckAllowed(`SELECT * FROM fire_alarm_record JOIN "secrets" ON 1=1`, allowed)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCheckAllowedCTEDoesNotNeedMembership(t *testing.T) {
	allowed := map[string]struct{}{"fire_alarm_record": {}}
	query := "WITH monthly AS (SELECT * FROM fire_alarm_record) SELECT * FROM monthly"
	assert.NoError(t, CheckAllowed(query, allowed))
}
