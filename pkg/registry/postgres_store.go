package registry

import (
	"context"
	"fmt"

	"github.com/askdb-io/askdb-engine/pkg/database"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

// PostgresStore persists custom datasources in the registry database.
// Creation order is preserved via created_at; upserts keep the original
// created_at so merge order never shifts under edits.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, tenant string) ([]models.Datasource, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, backend, path, connection_url, tables, enabled
		FROM custom_datasources
		WHERE tenant_id = $1
		ORDER BY created_at, id`, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom datasources: %w", err)
	}
	defer rows.Close()

	var sources []models.Datasource
	for rows.Next() {
		var ds models.Datasource
		var backend string
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.Description, &backend,
			&ds.Path, &ds.ConnectionURL, &ds.Tables, &ds.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan custom datasource: %w", err)
		}
		ds.Backend = models.BackendType(backend)
		sources = append(sources, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read custom datasources: %w", err)
	}
	return sources, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, tenant string, ds models.Datasource) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO custom_datasources
			(tenant_id, id, name, description, backend, path, connection_url, tables, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			backend = EXCLUDED.backend,
			path = EXCLUDED.path,
			connection_url = EXCLUDED.connection_url,
			tables = EXCLUDED.tables,
			enabled = EXCLUDED.enabled,
			updated_at = now()`,
		tenant, ds.ID, ds.Name, ds.Description, string(ds.Backend),
		ds.Path, ds.ConnectionURL, ds.Tables, ds.Enabled)
	if err != nil {
		return fmt.Errorf("failed to upsert custom datasource %q: %w", ds.ID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, tenant string, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM custom_datasources WHERE tenant_id = $1 AND id = $2`, tenant, id)
	if err != nil {
		return fmt.Errorf("failed to delete custom datasource %q: %w", id, err)
	}
	return nil
}

// Ensure PostgresStore implements Store at compile time.
var _ Store = (*PostgresStore)(nil)
