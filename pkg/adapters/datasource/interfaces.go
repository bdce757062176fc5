// Package datasource provides connectors for remote relational backends.
// The federation engine uses them to verify declared tables, introspect
// column types, and stream rows into per-query snapshot tables.
package datasource

import (
	"context"

	"github.com/askdb-io/askdb-engine/pkg/models"
)

// Connector is one open connection to a remote datasource.
// Each instance owns its connection and must be closed when done.
type Connector interface {
	// TestConnection verifies the database is reachable with valid credentials.
	TestConnection(ctx context.Context) error

	// GetColumns returns name and declared type for every column of table,
	// in ordinal order. An empty result means the table does not exist.
	GetColumns(ctx context.Context, table string) ([]models.Column, error)

	// ReadRows streams up to rowCap rows of the given columns from table,
	// invoking fn once per batch of at most batchSize rows. The batch slice
	// is reused between invocations; fn must not retain it. fn returning an
	// error aborts the read.
	ReadRows(ctx context.Context, table string, columns []models.Column, batchSize, rowCap int, fn func(batch [][]any) error) error

	// Close releases the connection.
	Close() error
}
