package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/askdb-io/askdb-engine/pkg/models"
)

// sqlConnector implements Connector over database/sql for every remote
// dialect. Connections are created per query and never pooled across
// requests; federation snapshots are request-scoped.
type sqlConnector struct {
	db      *sql.DB
	dialect dialect
}

// Connect opens a connector for the given remote backend. The connection
// is verified lazily; call TestConnection to probe it eagerly.
func Connect(backend models.BackendType, connectionURL string) (Connector, error) {
	d, err := dialectFor(backend)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", backend, err)
	}
	// One connection per snapshot; the engine disposes the connector with
	// the request.
	db.SetMaxOpenConns(1)

	return &sqlConnector{db: db, dialect: d}, nil
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *sqlConnector) GetColumns(ctx context.Context, table string) ([]models.Column, error) {
	rows, err := c.db.QueryContext(ctx, c.dialect.columnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect table %q: %w", table, err)
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var col models.Column
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read column metadata: %w", err)
	}
	return columns, nil
}

func (c *sqlConnector) ReadRows(ctx context.Context, table string, columns []models.Column, batchSize, rowCap int, fn func(batch [][]any) error) error {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = c.dialect.quote(col.Name)
	}
	query := c.dialect.limitSelect(strings.Join(quoted, ", "), c.dialect.quote(table), rowCap)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to read table %q: %w", table, err)
	}
	defer rows.Close()

	batch := make([][]any, 0, batchSize)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return fmt.Errorf("failed to scan row from %q: %w", table, err)
		}

		batch = append(batch, values)
		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed while streaming rows from %q: %w", table, err)
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}

// Ensure sqlConnector implements Connector at compile time.
var _ Connector = (*sqlConnector)(nil)
