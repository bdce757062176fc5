package federation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/logging"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

// session is the request-scoped unified schema: one dedicated connection
// plus the cleanup needed to dismantle attachments and ephemeral tables.
type session struct {
	conn    *sql.Conn
	cleanup []string
	logger  *zap.Logger
}

// buildSession claims a connection and federates every non-primary table
// ref into it. Any failure tears down what was already built; federation
// failures name the offending datasource.
func (e *Engine) buildSession(ctx context.Context, refs []models.TableRef, sources map[string]models.Datasource) (*session, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, &apperrors.ExecutionError{Err: err}
	}

	s := &session{conn: conn, logger: e.logger}

	// Group refs per datasource so each backend is attached or connected
	// once, in ref order, which keeps setup deterministic.
	var order []string
	grouped := make(map[string][]models.TableRef)
	for _, ref := range refs {
		if _, seen := grouped[ref.DatasourceID]; !seen {
			order = append(order, ref.DatasourceID)
		}
		grouped[ref.DatasourceID] = append(grouped[ref.DatasourceID], ref)
	}

	for _, dsID := range order {
		dsRefs := grouped[dsID]

		// Primary tables already live in the connection's own catalog.
		if dsRefs[0].Alias == dsRefs[0].PhysicalTable {
			continue
		}

		ds, ok := sources[dsID]
		if !ok {
			s.teardown()
			return nil, &apperrors.FederationError{DatasourceID: dsID, Err: apperrors.ErrNotFound}
		}

		if ds.Backend == models.BackendEmbedded {
			err = e.attachEmbedded(ctx, s, ds, dsRefs)
		} else {
			err = e.snapshotRemote(ctx, s, ds, dsRefs)
		}
		if err != nil {
			s.teardown()
			return nil, &apperrors.FederationError{
				DatasourceID: dsID,
				Err:          errors.New(logging.SanitizeError(err)),
			}
		}
	}

	return s, nil
}

// attachEmbedded mounts a secondary DuckDB file under a private namespace
// and exposes each needed table as a read-only view under its alias.
func (e *Engine) attachEmbedded(ctx context.Context, s *session, ds models.Datasource, refs []models.TableRef) error {
	namespace := "fed_" + ds.ID

	attach := fmt.Sprintf("ATTACH %s AS %s (READ_ONLY)", quoteString(ds.Path), quoteIdent(namespace))
	if _, err := s.conn.ExecContext(ctx, attach); err != nil {
		return fmt.Errorf("attach failed: %w", err)
	}
	s.deferCleanup(fmt.Sprintf("DETACH %s", quoteIdent(namespace)))

	for _, ref := range refs {
		view := fmt.Sprintf("CREATE OR REPLACE TEMP VIEW %s AS SELECT * FROM %s.%s",
			quoteIdent(ref.Alias), quoteIdent(namespace), quoteIdent(ref.PhysicalTable))
		if _, err := s.conn.ExecContext(ctx, view); err != nil {
			return fmt.Errorf("view for table %q failed: %w", ref.PhysicalTable, err)
		}
		s.deferCleanup(fmt.Sprintf("DROP VIEW IF EXISTS %s", quoteIdent(ref.Alias)))
	}
	return nil
}

// snapshotRemote copies each needed remote table into an ephemeral local
// table: introspect columns, create with best-effort type mapping, then
// batched, type-coerced inserts up to the per-table row cap. Snapshot-only:
// once copied, the data is frozen for the duration of the query.
func (e *Engine) snapshotRemote(ctx context.Context, s *session, ds models.Datasource, refs []models.TableRef) error {
	conn, err := e.connect(ds.Backend, ds.ConnectionURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, ref := range refs {
		columns, err := conn.GetColumns(ctx, ref.PhysicalTable)
		if err != nil {
			return err
		}
		if len(columns) == 0 {
			return fmt.Errorf("table %q: %w", ref.PhysicalTable, apperrors.ErrNotFound)
		}

		defs := make([]string, len(columns))
		for i, col := range columns {
			defs[i] = quoteIdent(col.Name) + " " + localTypeFor(col.DataType)
		}
		create := fmt.Sprintf("CREATE TEMP TABLE %s (%s)", quoteIdent(ref.Alias), strings.Join(defs, ", "))
		if _, err := s.conn.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("snapshot table for %q failed: %w", ref.PhysicalTable, err)
		}
		s.deferCleanup(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(ref.Alias)))

		insert := buildInsert(ref.Alias, columns)
		copied := 0
		err = conn.ReadRows(ctx, ref.PhysicalTable, columns, e.cfg.SnapshotBatchSize, e.cfg.SnapshotRowCap,
			func(batch [][]any) error {
				for _, row := range batch {
					args := make([]any, len(row))
					for i, v := range row {
						args[i] = coerceValue(v)
					}
					if _, err := s.conn.ExecContext(ctx, insert, args...); err != nil {
						return fmt.Errorf("snapshot insert into %q failed: %w", ref.Alias, err)
					}
				}
				copied += len(batch)
				return nil
			})
		if err != nil {
			return err
		}

		e.logger.Debug("remote table snapshotted",
			zap.String("datasource", ds.ID),
			zap.String("table", ref.PhysicalTable),
			zap.Int("rows", copied))
	}
	return nil
}

// deferCleanup registers a teardown statement, run in reverse order.
func (s *session) deferCleanup(stmt string) {
	s.cleanup = append(s.cleanup, stmt)
}

// teardown dismantles the session on every exit path. It runs on a fresh
// context so cleanup still happens when the request context is already
// cancelled.
func (s *session) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(s.cleanup) - 1; i >= 0; i-- {
		if _, err := s.conn.ExecContext(ctx, s.cleanup[i]); err != nil {
			s.logger.Warn("session cleanup statement failed",
				zap.String("stmt", s.cleanup[i]),
				zap.Error(err))
		}
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("failed to release session connection", zap.Error(err))
	}
}

// buildInsert renders the parameterized insert for one snapshot table.
func buildInsert(alias string, columns []models.Column) string {
	placeholders := make([]string, len(columns))
	names := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		names[i] = quoteIdent(col.Name)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(alias), strings.Join(names, ", "), strings.Join(placeholders, ", "))
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
