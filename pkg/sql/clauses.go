package sql

import (
	"regexp"
	"strconv"
	"strings"
)

// Clauses is a lexical summary of a SELECT statement, extracted with the
// same regex-level fidelity as the rest of this package. It backs the
// deterministic analysis narrative and drill-down reconstruction, so it has
// to work without any model call.
type Clauses struct {
	FromTable  string
	GroupBy    []string
	Aggregates []string
	Where      string
	OrderBy    string
	Limit      int
}

var (
	fromPattern    = regexp.MustCompile(`(?i)\bfrom\s+([A-Za-z_][A-Za-z0-9_]*)`)
	groupByPattern = regexp.MustCompile(`(?is)\bgroup\s+by\s+(.+?)(?:\border\s+by\b|\blimit\b|\bhaving\b|$)`)
	orderByPattern = regexp.MustCompile(`(?is)\border\s+by\s+(.+?)(?:\blimit\b|$)`)
	wherePattern   = regexp.MustCompile(`(?is)\bwhere\s+(.+?)(?:\bgroup\s+by\b|\border\s+by\b|\blimit\b|$)`)
	limitPattern   = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
	aggPattern     = regexp.MustCompile(`(?i)\b(count|sum|avg|min|max)\s*\(`)
)

// ParseClauses summarizes a single SELECT statement. It is approximate by
// design: nested subqueries contribute their clauses to the summary, which
// is acceptable for narrative text and drill-down table detection.
func ParseClauses(query string) Clauses {
	stripped := strings.TrimSpace(StripComments(query))

	c := Clauses{}

	if m := fromPattern.FindStringSubmatch(stripped); m != nil {
		c.FromTable = strings.ToLower(m[1])
	}
	if m := groupByPattern.FindStringSubmatch(stripped); m != nil {
		for _, field := range strings.Split(m[1], ",") {
			field = strings.TrimSpace(field)
			if field != "" {
				c.GroupBy = append(c.GroupBy, field)
			}
		}
	}
	if m := wherePattern.FindStringSubmatch(stripped); m != nil {
		c.Where = strings.TrimSpace(m[1])
	}
	if m := orderByPattern.FindStringSubmatch(stripped); m != nil {
		c.OrderBy = strings.TrimSpace(m[1])
	}
	if m := limitPattern.FindStringSubmatch(stripped); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			c.Limit = n
		}
	}

	seen := make(map[string]struct{})
	for _, m := range aggPattern.FindAllStringSubmatch(stripped, -1) {
		fn := strings.ToUpper(m[1])
		if _, dup := seen[fn]; dup {
			continue
		}
		seen[fn] = struct{}{}
		c.Aggregates = append(c.Aggregates, fn)
	}

	return c
}

// trailingLimitPattern matches only a statement-final LIMIT so that LIMIT
// clauses inside subqueries are never rewritten.
var trailingLimitPattern = regexp.MustCompile(`(?i)\blimit\s+(\d+)((?:\s+offset\s+\d+)?)\s*$`)

// EnsureLimit appends "LIMIT maxRows" when the statement carries no
// outermost LIMIT, and lowers a trailing LIMIT that exceeds maxRows.
// Generated SQL must never leave this function unbounded.
func EnsureLimit(query string, maxRows int) string {
	trimmed := strings.TrimSpace(query)
	if m := trailingLimitPattern.FindStringSubmatch(trimmed); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= maxRows {
			return trimmed
		}
		return trailingLimitPattern.ReplaceAllString(trimmed, "LIMIT "+strconv.Itoa(maxRows)+"${2}")
	}
	return trimmed + " LIMIT " + strconv.Itoa(maxRows)
}
