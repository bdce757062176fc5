package federation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/logging"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

const columnsQuery = `SELECT column_name, data_type
FROM information_schema.columns
WHERE table_name = ? AND table_schema = 'main'
ORDER BY ordinal_position`

// DescribeTables introspects every table ref and returns its columns keyed
// by alias. This is the lightweight schema pass used to ground prompt
// generation; it never builds a full federated session.
func (e *Engine) DescribeTables(ctx context.Context, refs []models.TableRef, sources map[string]models.Datasource) (map[string][]models.Column, error) {
	out := make(map[string][]models.Column, len(refs))

	for _, ref := range refs {
		var (
			columns []models.Column
			err     error
		)

		if ref.Alias == ref.PhysicalTable {
			columns, err = describeLocal(ctx, e.db, ref.PhysicalTable)
		} else {
			ds, ok := sources[ref.DatasourceID]
			if !ok {
				return nil, &apperrors.FederationError{DatasourceID: ref.DatasourceID, Err: apperrors.ErrNotFound}
			}
			if ds.Backend == models.BackendEmbedded {
				columns, err = e.describeEmbedded(ctx, ds.Path, ref.PhysicalTable)
			} else {
				columns, err = e.describeRemote(ctx, ds, ref.PhysicalTable)
			}
		}
		if err != nil {
			return nil, &apperrors.FederationError{
				DatasourceID: ref.DatasourceID,
				Err:          errors.New(logging.SanitizeError(err)),
			}
		}
		if len(columns) == 0 {
			return nil, &apperrors.FederationError{
				DatasourceID: ref.DatasourceID,
				Err:          fmt.Errorf("table %q: %w", ref.PhysicalTable, apperrors.ErrNotFound),
			}
		}

		out[ref.Alias] = columns
	}

	return out, nil
}

// describeEmbedded opens a secondary database file read-only just long
// enough to list one table's columns.
func (e *Engine) describeEmbedded(ctx context.Context, path, table string) ([]models.Column, error) {
	db, err := sql.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return describeLocal(ctx, db, table)
}

func (e *Engine) describeRemote(ctx context.Context, ds models.Datasource, table string) ([]models.Column, error) {
	conn, err := e.connect(ds.Backend, ds.ConnectionURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return conn.GetColumns(ctx, table)
}

func describeLocal(ctx context.Context, db *sql.DB, table string) ([]models.Column, error) {
	rows, err := db.QueryContext(ctx, columnsQuery, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var col models.Column
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}
