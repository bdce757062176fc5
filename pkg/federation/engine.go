// Package federation builds the per-query unified schema and executes
// validated SQL against it: primary tables exposed directly, secondary
// embedded databases attached as read-only views, remote tables
// snapshotted into ephemeral local tables.
package federation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/adapters/datasource"
	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/logging"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

// Config holds the engine's execution limits.
type Config struct {
	// DBPath is the primary DuckDB database file; empty for in-memory.
	DBPath string
	// MaxRows is the hard row cap on every result.
	MaxRows int
	// QueryTimeout is the cooperative execution budget.
	QueryTimeout time.Duration
	// SnapshotBatchSize bounds each remote copy batch.
	SnapshotBatchSize int
	// SnapshotRowCap is the per-table row limit for remote snapshots.
	SnapshotRowCap int
}

// connectFunc opens a remote connector; injectable so tests can run
// without live databases.
type connectFunc func(backend models.BackendType, connectionURL string) (datasource.Connector, error)

// Engine executes validated queries over a federated, request-scoped
// schema. The root DuckDB handle is shared, but every invocation claims a
// dedicated connection so attachments and ephemeral tables never leak
// across requests.
type Engine struct {
	db      *sql.DB
	cfg     Config
	connect connectFunc
	logger  *zap.Logger
}

// NewEngine opens the primary database and returns the engine.
func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	dsn := cfg.DBPath
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open primary database: %w", err)
	}

	return &Engine{
		db:      db,
		cfg:     cfg,
		connect: datasource.Connect,
		logger:  logger.Named("federation"),
	}, nil
}

// Close releases the primary database handle.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Result is the raw outcome of one execution, before chart shaping.
type Result struct {
	Columns   []string
	Rows      []map[string]any
	Truncated bool
}

// Execute runs one validated, allow-list-checked statement. It builds the
// federated session for the given table refs, runs the query under the row
// cap and time budget, and tears the session down on every exit path.
func (e *Engine) Execute(ctx context.Context, query string, refs []models.TableRef, sources map[string]models.Datasource) (*Result, error) {
	session, err := e.buildSession(ctx, refs, sources)
	if err != nil {
		return nil, err
	}
	defer session.teardown()

	execCtx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := session.conn.QueryContext(execCtx, query)
	if err != nil {
		return nil, e.mapExecError(execCtx, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &apperrors.ExecutionError{Err: err}
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		if len(result.Rows) == e.cfg.MaxRows {
			// One row beyond the cap is enough to know we truncated.
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, &apperrors.ExecutionError{Err: err}
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, e.mapExecError(execCtx, err)
	}

	e.logger.Debug("query executed",
		zap.Int("rows", len(result.Rows)),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// mapExecError normalizes a cancelled-by-deadline failure into ErrTimeout;
// everything else is an ExecutionError carrying sanitized backend text.
func (e *Engine) mapExecError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrTimeout
	}
	return &apperrors.ExecutionError{Err: errors.New(logging.SanitizeError(err))}
}
