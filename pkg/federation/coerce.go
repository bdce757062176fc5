package federation

import (
	"strings"
	"time"
)

// localTypeFor maps a source column type, as reported by the remote
// backend, to the local column type used for the snapshot table. Unknown
// types degrade to VARCHAR rather than failing the snapshot.
func localTypeFor(sourceType string) string {
	t := strings.ToLower(strings.TrimSpace(sourceType))
	if i := strings.IndexAny(t, "( "); i > 0 {
		t = t[:i]
	}

	switch t {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint",
		"int2", "int4", "int8", "serial", "bigserial", "smallserial", "year":
		return "BIGINT"
	case "decimal", "numeric", "money", "smallmoney",
		"float", "float4", "float8", "real", "double":
		return "DOUBLE"
	case "bool", "boolean", "bit":
		return "BIGINT"
	case "bytea", "blob", "tinyblob", "mediumblob", "longblob",
		"binary", "varbinary", "image":
		return "BLOB"
	default:
		// Dates, times, text, JSON, enums: carried as text so the copy
		// never fails on a dialect-specific representation.
		return "VARCHAR"
	}
}

// coerceValue converts one remote value into a form the snapshot insert
// accepts. Temporal values become ISO text, booleans become 0/1 to match
// localTypeFor, and anything else passes through.
func coerceValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	case []byte:
		return t
	default:
		return v
	}
}

// normalizeValue converts one scanned result cell into a JSON-friendly
// form: bytes become strings, temporal values become ISO text.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return v
	}
}
