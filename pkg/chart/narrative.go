package chart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/askdb-io/askdb-engine/pkg/models"
	enginesql "github.com/askdb-io/askdb-engine/pkg/sql"
)

const (
	clauseMaxLen   = 120
	previewRows    = 3
	previewColumns = 4
)

// Narrative renders the deterministic analysis text for one result. It is
// filled entirely from the question, the SQL, and the rows, so it works
// even when no language model is configured.
func (s *Shaper) Narrative(question, sqlText string, refs []models.TableRef, columns []string, rows []map[string]any, truncated bool) string {
	clauses := enginesql.ParseClauses(sqlText)

	var b strings.Builder

	fmt.Fprintf(&b, "Intent: %s.", s.intentCategory(question, clauses))

	if line := describeSources(refs); line != "" {
		b.WriteString(" " + line)
	}

	if len(clauses.GroupBy) > 0 {
		fmt.Fprintf(&b, " Grouped by %s.", strings.Join(clauses.GroupBy, ", "))
	}
	if len(clauses.Aggregates) > 0 {
		fmt.Fprintf(&b, " Aggregates: %s.", strings.Join(clauses.Aggregates, ", "))
	}
	if clauses.Where != "" {
		fmt.Fprintf(&b, " Filter: %s.", truncateClause(clauses.Where))
	}
	if clauses.OrderBy != "" {
		fmt.Fprintf(&b, " Sorted by %s.", truncateClause(clauses.OrderBy))
	}
	if clauses.Limit > 0 {
		fmt.Fprintf(&b, " Limited to %d rows.", clauses.Limit)
	}

	if truncated {
		fmt.Fprintf(&b, " Returned %d rows (truncated at the row cap).", len(rows))
	} else {
		fmt.Fprintf(&b, " Returned %d rows.", len(rows))
	}

	if preview := previewText(columns, rows); preview != "" {
		b.WriteString(" Preview: " + preview)
	}

	return b.String()
}

// intentCategory names what the question asked for, judged by the rule
// table's keywords first and the SQL's shape second.
func (s *Shaper) intentCategory(question string, clauses enginesql.Clauses) string {
	q := strings.ToLower(question)

	switch {
	case containsAny(q, s.rules.TrendKeywords):
		return "trend"
	case containsAny(q, s.rules.RatioKeywords):
		return "ratio"
	case containsAny(q, s.rules.RankingKeywords):
		return "ranking"
	case len(clauses.GroupBy) > 0 || len(clauses.Aggregates) > 0:
		return "summary"
	default:
		return "detail"
	}
}

// describeSources summarizes the datasources and tables the query touched.
func describeSources(refs []models.TableRef) string {
	if len(refs) == 0 {
		return ""
	}

	byDS := make(map[string][]string)
	var dsOrder []string
	for _, ref := range refs {
		if _, seen := byDS[ref.DatasourceID]; !seen {
			dsOrder = append(dsOrder, ref.DatasourceID)
		}
		byDS[ref.DatasourceID] = append(byDS[ref.DatasourceID], ref.PhysicalTable)
	}

	parts := make([]string, 0, len(dsOrder))
	for _, ds := range dsOrder {
		tables := byDS[ds]
		sort.Strings(tables)
		parts = append(parts, fmt.Sprintf("%s (%s)", ds, strings.Join(tables, ", ")))
	}
	return "Sources: " + strings.Join(parts, "; ") + "."
}

// previewText renders the first few rows and columns as a compact listing.
func previewText(columns []string, rows []map[string]any) string {
	if len(rows) == 0 || len(columns) == 0 {
		return ""
	}

	cols := columns
	if len(cols) > previewColumns {
		cols = cols[:previewColumns]
	}

	n := len(rows)
	if n > previewRows {
		n = previewRows
	}

	lines := make([]string, 0, n)
	for _, row := range rows[:n] {
		cells := make([]string, 0, len(cols))
		for _, col := range cols {
			cells = append(cells, fmt.Sprintf("%s=%v", col, row[col]))
		}
		lines = append(lines, strings.Join(cells, ", "))
	}
	return strings.Join(lines, " | ")
}

func truncateClause(clause string) string {
	clause = strings.Join(strings.Fields(clause), " ")
	if len(clause) <= clauseMaxLen {
		return clause
	}
	return clause[:clauseMaxLen] + "..."
}
