package sql

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
)

// CheckValueForInjection screens a user-supplied value that will be
// interpolated into a SQL literal (drill-down values, primarily) using
// libinjection. Non-string values cannot carry injection patterns and pass.
func CheckValueForInjection(label string, value any) error {
	str, ok := value.(string)
	if !ok {
		return nil
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(str); isSQLi {
		return fmt.Errorf("%w: %s value matches injection fingerprint %s",
			apperrors.ErrValidation, label, string(fingerprint))
	}
	return nil
}

// QuoteLiteral renders a value as a SQL literal with single quotes doubled.
// Callers must pass the value through CheckValueForInjection first.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
