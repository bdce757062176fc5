package registry

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/askdb-io/askdb-engine/pkg/adapters/datasource"
	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

// Verifier probes a draft datasource's backend before the registry accepts
// it. Split out as an interface so service tests run without databases.
type Verifier interface {
	// VerifyEmbedded checks that the database file exists and contains
	// every declared table.
	VerifyEmbedded(ctx context.Context, ds models.Datasource) error

	// VerifyRemote opens a connection and checks every declared table
	// exists.
	VerifyRemote(ctx context.Context, ds models.Datasource) error
}

// NewVerifier returns the production verifier.
func NewVerifier() Verifier {
	return &backendVerifier{}
}

type backendVerifier struct{}

func (v *backendVerifier) VerifyEmbedded(ctx context.Context, ds models.Datasource) error {
	if _, err := os.Stat(ds.Path); err != nil {
		return fmt.Errorf("%w: database file for datasource %q", apperrors.ErrNotFound, ds.ID)
	}

	db, err := sql.Open("duckdb", ds.Path+"?access_mode=read_only")
	if err != nil {
		return fmt.Errorf("%w: datasource %q: %v", apperrors.ErrConnection, ds.ID, err)
	}
	defer db.Close()

	for _, table := range ds.Tables {
		var count int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, table).Scan(&count)
		if err != nil {
			return fmt.Errorf("%w: datasource %q: %v", apperrors.ErrConnection, ds.ID, err)
		}
		if count == 0 {
			return fmt.Errorf("%w: table %q in datasource %q", apperrors.ErrNotFound, table, ds.ID)
		}
	}
	return nil
}

func (v *backendVerifier) VerifyRemote(ctx context.Context, ds models.Datasource) error {
	conn, err := datasource.Connect(ds.Backend, ds.ConnectionURL)
	if err != nil {
		return fmt.Errorf("%w: datasource %q: %v", apperrors.ErrConnection, ds.ID, err)
	}
	defer conn.Close()

	if err := conn.TestConnection(ctx); err != nil {
		return fmt.Errorf("%w: datasource %q unreachable", apperrors.ErrConnection, ds.ID)
	}

	for _, table := range ds.Tables {
		columns, err := conn.GetColumns(ctx, table)
		if err != nil {
			return fmt.Errorf("%w: datasource %q: %v", apperrors.ErrConnection, ds.ID, err)
		}
		if len(columns) == 0 {
			return fmt.Errorf("%w: table %q in datasource %q", apperrors.ErrNotFound, table, ds.ID)
		}
	}
	return nil
}
