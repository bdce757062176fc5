// Package apperrors defines the error taxonomy shared across the engine.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrValidation       = errors.New("validation failed")
	ErrConnection       = errors.New("connection failed")
	ErrTimeout          = errors.New("query exceeded time budget")
	ErrModelUnavailable = errors.New("language model unavailable")
	ErrNoDatasources    = errors.New("no datasources selected")
)

// UnsafeStatementError reports a statement rejected by the read-only filter.
// Keyword is the forbidden word that triggered the rejection, or empty when
// the statement did not start with SELECT/WITH.
type UnsafeStatementError struct {
	Keyword string
}

func (e *UnsafeStatementError) Error() string {
	if e.Keyword == "" {
		return "only read-only SELECT statements are allowed"
	}
	return fmt.Sprintf("statement rejected: forbidden keyword %q", e.Keyword)
}

// UnauthorizedTableError reports SQL referencing tables outside the
// resolved allow-list. Tables holds the offending names only, never the
// full allowed schema.
type UnauthorizedTableError struct {
	Tables []string
}

func (e *UnauthorizedTableError) Error() string {
	return fmt.Sprintf("query references unauthorized tables: %s", strings.Join(e.Tables, ", "))
}

// FederationError reports an attach/connect/introspect failure against a
// named datasource. The wrapped error is sanitized before surfacing.
type FederationError struct {
	DatasourceID string
	Err          error
}

func (e *FederationError) Error() string {
	return fmt.Sprintf("federation failed for datasource %q: %v", e.DatasourceID, e.Err)
}

func (e *FederationError) Unwrap() error { return e.Err }

// ExecutionError wraps the backend's rejection of a query.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// UnsupportedDrilldownError reports a (table, field) pair with no
// drill-down rule.
type UnsupportedDrilldownError struct {
	Table string
	Field string
}

func (e *UnsupportedDrilldownError) Error() string {
	return fmt.Sprintf("drill-down not supported for field %q on table %q", e.Field, e.Table)
}
