package logging

import "regexp"

// redacted replaces credential material in sanitized output.
const redacted = "[REDACTED]"

var (
	// Keyword DSN credentials: "password=..." in pgx keyword strings and
	// SQL Server ODBC-style strings. Matches password/pwd/pass up to the
	// next delimiter.
	keywordCredPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// URL DSN credentials: the userinfo block of postgres:// and
	// sqlserver:// URLs.
	urlCredPattern = regexp.MustCompile(`://[^:/@\s]+:[^@\s]+@[^/?\s]+`)

	// MySQL net DSN credentials: "user:pass@tcp(host:port)/db" has no
	// scheme, so the URL pattern never sees it.
	mysqlCredPattern = regexp.MustCompile(`(?i)\b[^:@/\s]+:[^@\s]*@(tcp|unix)\(`)

	// Model API keys that a client error may echo back.
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey)=[A-Za-z0-9._-]{8,}`)
)

// SanitizeConnectionString scrubs credentials from a datasource DSN in any
// of the forms the engine connects with: postgres/sqlserver URLs, MySQL net
// DSNs, and keyword strings. Embedded DuckDB paths pass through unchanged.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	s := keywordCredPattern.ReplaceAllString(connStr, "${1}="+redacted)
	s = urlCredPattern.ReplaceAllString(s, "://"+redacted+"@"+redacted)
	s = mysqlCredPattern.ReplaceAllString(s, redacted+"@${1}(")
	return s
}

// SanitizeError renders an error for logs and client-facing messages.
// Driver errors routinely echo the DSN they failed to dial, so every
// credential form plus API keys is scrubbed from the text.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	s := keywordCredPattern.ReplaceAllString(err.Error(), "${1}="+redacted)
	s = urlCredPattern.ReplaceAllString(s, "://"+redacted+"@"+redacted)
	s = mysqlCredPattern.ReplaceAllString(s, redacted+"@${1}(")
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+redacted)
	return s
}

// TruncateString bounds a string for logging, appending an ellipsis when it
// was cut.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
