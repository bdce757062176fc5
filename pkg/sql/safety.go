// Package sql provides the lexical SQL safety layer: identifier validation,
// the read-only statement filter, and referenced-table extraction.
//
// None of this is a full SQL parser. The checks are conservative by
// construction and err toward rejecting ambiguous input; the allow-list
// check built on them is a defense-in-depth layer, not a substitute for
// least-privilege datasource credentials.
package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
)

// identifierPattern is the shape every datasource ID and table name must have.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// forbiddenKeywords are rejected anywhere in a statement, as whole words.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "TRUNCATE", "ALTER",
	"CREATE", "REPLACE", "ATTACH", "DETACH", "PRAGMA",
}

var forbiddenPattern = regexp.MustCompile(
	`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)

// ValidateIdentifier checks that name is alphanumeric/underscore and not
// digit-led. The label names the field in the error message.
func ValidateIdentifier(name, label string) error {
	if name == "" {
		return fmt.Errorf("%w: %s must not be empty", apperrors.ErrValidation, label)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %s %q must match [A-Za-z_][A-Za-z0-9_]*", apperrors.ErrValidation, label, name)
	}
	return nil
}

// Normalize trims whitespace, strips one trailing semicolon, and rejects
// statements that still contain a semicolon outside string literals.
func Normalize(query string) (string, error) {
	query = strings.TrimSpace(query)
	query = strings.TrimRight(query, " \t\n\r")
	if strings.HasSuffix(query, ";") {
		query = strings.TrimRight(strings.TrimSuffix(query, ";"), " \t\n\r")
	}

	if containsTopLevelSemicolon(query) {
		return "", fmt.Errorf("%w: multiple SQL statements are not allowed", apperrors.ErrValidation)
	}
	return query, nil
}

// CheckReadOnly strips comments, requires the statement to start with SELECT
// or WITH, and rejects any forbidden keyword as a whole word. It returns an
// *apperrors.UnsafeStatementError on rejection.
func CheckReadOnly(query string) error {
	stripped := strings.TrimSpace(StripComments(query))
	if stripped == "" {
		return &apperrors.UnsafeStatementError{}
	}

	upper := strings.ToUpper(stripped)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return &apperrors.UnsafeStatementError{}
	}

	if m := forbiddenPattern.FindString(stripped); m != "" {
		return &apperrors.UnsafeStatementError{Keyword: strings.ToUpper(m)}
	}
	return nil
}

// IsSafeReadOnly reports whether CheckReadOnly accepts the statement.
func IsSafeReadOnly(query string) bool {
	return CheckReadOnly(query) == nil
}

// StripComments removes /* */ block comments and -- line comments, leaving
// string literals untouched.
func StripComments(query string) string {
	var b strings.Builder
	b.Grow(len(query))

	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case ch == '\'':
				state = stateString
				b.WriteRune(ch)
			case ch == '-' && next == '-':
				state = stateLineComment
				i++
			case ch == '/' && next == '*':
				state = stateBlockComment
				i++
			default:
				b.WriteRune(ch)
			}
		case stateString:
			b.WriteRune(ch)
			if ch == '\'' {
				state = stateNormal
			}
		case stateLineComment:
			if ch == '\n' {
				state = stateNormal
				b.WriteRune(ch)
			}
		case stateBlockComment:
			if ch == '*' && next == '/' {
				state = stateNormal
				i++
				// Comments act as token separators.
				b.WriteRune(' ')
			}
		}
	}
	return b.String()
}

// containsTopLevelSemicolon scans for a semicolon outside of single- or
// double-quoted literals.
func containsTopLevelSemicolon(query string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prev := rune(0)
	for _, ch := range query {
		switch state {
		case stateNormal:
			switch ch {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Doubled quotes ('') exit and immediately re-enter, which
			// keeps the scan inside the literal.
			if ch == '\'' && prev != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if ch == '"' && prev != '\\' {
				state = stateNormal
			}
		}
		prev = ch
	}
	return false
}
