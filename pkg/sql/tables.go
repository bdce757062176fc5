package sql

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
)

// tableRefPattern matches the identifier immediately after FROM or JOIN.
// Subqueries ("FROM (") produce no match and are skipped on purpose.
var tableRefPattern = regexp.MustCompile(`(?i)\b(?:from|join)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// quotedRefPattern catches FROM/JOIN targets written as quoted identifiers.
// Those would slip past tableRefPattern while still naming a real table, so
// CheckAllowed rejects them outright.
var quotedRefPattern = regexp.MustCompile(`(?i)\b(?:from|join)\s+"`)

// ExtractReferencedTables scans a statement for FROM/JOIN targets, excluding
// names defined by leading common-table-expressions so that CTE aliases are
// not mistaken for physical tables. Matching is case-insensitive; the result
// is lowercased and sorted.
func ExtractReferencedTables(query string) []string {
	stripped := StripComments(query)

	cteNames := collectCTENames(stripped)

	seen := make(map[string]struct{})
	var tables []string
	for _, m := range tableRefPattern.FindAllStringSubmatch(stripped, -1) {
		name := strings.ToLower(m[1])
		if _, isCTE := cteNames[name]; isCTE {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables
}

// CheckAllowed enforces the allow-list contract: every referenced table must
// be in allowed (lowercased aliases). Violations return an
// *apperrors.UnauthorizedTableError naming only the offending tables.
// Quoted FROM/JOIN targets are rejected: aliases are always bare
// identifiers, so a quoted name could only be an allow-list bypass.
func CheckAllowed(query string, allowed map[string]struct{}) error {
	if quotedRefPattern.MatchString(StripComments(query)) {
		return fmt.Errorf("quoted table identifiers are not supported: %w", apperrors.ErrValidation)
	}

	var offending []string
	for _, table := range ExtractReferencedTables(query) {
		if _, ok := allowed[table]; !ok {
			offending = append(offending, table)
		}
	}
	if len(offending) > 0 {
		return &apperrors.UnauthorizedTableError{Tables: offending}
	}
	return nil
}

// collectCTENames walks a leading "WITH [RECURSIVE] name AS ( ... )
// [, name2 AS ( ... )]*" prefix with balanced-parenthesis tracking and
// returns the set of defined names, lowercased. A statement that does not
// start with WITH yields an empty set. Nested WITH clauses inside
// subqueries are not walked; their names simply stay subject to the
// allow-list, which is the conservative direction.
func collectCTENames(query string) map[string]struct{} {
	names := make(map[string]struct{})

	rest := strings.TrimSpace(query)
	if len(rest) < 4 || !strings.EqualFold(rest[:4], "with") {
		return names
	}
	rest = rest[4:]

	rest = strings.TrimSpace(rest)
	if len(rest) >= 9 && strings.EqualFold(rest[:9], "recursive") {
		rest = rest[9:]
	}

	for {
		rest = strings.TrimSpace(rest)

		name, after := readIdentifier(rest)
		if name == "" {
			return names
		}
		rest = strings.TrimSpace(after)

		// Optional column list before AS.
		if strings.HasPrefix(rest, "(") {
			body, ok := skipBalanced(rest)
			if !ok {
				return names
			}
			rest = strings.TrimSpace(body)
		}

		if len(rest) < 2 || !strings.EqualFold(rest[:2], "as") {
			return names
		}
		rest = strings.TrimSpace(rest[2:])

		if !strings.HasPrefix(rest, "(") {
			return names
		}
		body, ok := skipBalanced(rest)
		if !ok {
			return names
		}
		names[strings.ToLower(name)] = struct{}{}
		rest = strings.TrimSpace(body)

		if !strings.HasPrefix(rest, ",") {
			return names
		}
		rest = rest[1:]
	}
}

// readIdentifier consumes one bare identifier from the front of s.
func readIdentifier(s string) (ident, rest string) {
	end := 0
	for end < len(s) {
		ch := rune(s[end])
		if ch == '_' || unicode.IsLetter(ch) || (end > 0 && unicode.IsDigit(ch)) {
			end++
			continue
		}
		break
	}
	return s[:end], s[end:]
}

// skipBalanced consumes a parenthesized group starting at s[0] == '(' and
// returns what follows it. String literals are honored so parentheses
// inside quotes do not affect the depth count.
func skipBalanced(s string) (rest string, ok bool) {
	depth := 0
	inString := false
	for i, ch := range s {
		if inString {
			if ch == '\'' {
				inString = false
			}
			continue
		}
		switch ch {
		case '\'':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[i+1:], true
			}
		}
	}
	return "", false
}
