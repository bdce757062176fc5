// Package services orchestrates the query pipeline: registry resolution,
// NL→SQL generation, federated execution, result shaping, and the
// streaming and drill-down entry points consumed by HTTP and MCP surfaces.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/chart"
	"github.com/askdb-io/askdb-engine/pkg/federation"
	"github.com/askdb-io/askdb-engine/pkg/llm"
	"github.com/askdb-io/askdb-engine/pkg/models"
	"github.com/askdb-io/askdb-engine/pkg/registry"
	enginesql "github.com/askdb-io/askdb-engine/pkg/sql"
)

// AskRequest is one natural-language question with its selection context.
type AskRequest struct {
	Question      string
	DatasourceIDs []string
	History       []models.HistoryTurn
}

// AskResponse carries exactly one of a data result or a small-talk reply.
type AskResponse struct {
	Result *models.QueryResult `json:"result,omitempty"`
	Reply  *models.ChatReply   `json:"reply,omitempty"`
}

// QueryService is the engine's operation surface.
type QueryService interface {
	// Ask runs the full pipeline with intent classification. Small talk
	// short-circuits to a conversational reply without touching SQL.
	Ask(ctx context.Context, tenant string, req AskRequest) (*AskResponse, error)

	// AskStream runs Ask while emitting the incremental event sequence on
	// events. It never closes the channel and always ends with a done
	// event, error or not.
	AskStream(ctx context.Context, tenant string, req AskRequest, events chan<- models.Event)

	// RunSQL executes caller-supplied SQL, still subject to the full
	// safety and allow-list validation.
	RunSQL(ctx context.Context, tenant, sqlText string, datasourceIDs []string, question string) (*models.QueryResult, error)

	// Drilldown reconstructs a narrower detail query from a stored result
	// and a clicked field/value.
	Drilldown(ctx context.Context, tenant, resultID, field string, value any, datasourceIDs []string) (*models.QueryResult, error)
}

// Executor is the execution surface the service needs from the federation
// engine.
type Executor interface {
	Execute(ctx context.Context, query string, refs []models.TableRef, sources map[string]models.Datasource) (*federation.Result, error)
	DescribeTables(ctx context.Context, refs []models.TableRef, sources map[string]models.Datasource) (map[string][]models.Column, error)
}

// EngineConfig holds the per-request limits the service enforces.
type EngineConfig struct {
	MaxRows         int
	MaxHistoryTurns int
	DrilldownRowCap int
}

type queryService struct {
	registry  registry.Service
	executor  Executor
	generator *llm.Generator
	shaper    *chart.Shaper
	rules     *llm.Rules
	store     ResultStore
	cfg       EngineConfig
	logger    *zap.Logger
}

// NewQueryService wires the pipeline together.
func NewQueryService(
	reg registry.Service,
	executor Executor,
	generator *llm.Generator,
	shaper *chart.Shaper,
	rules *llm.Rules,
	store ResultStore,
	cfg EngineConfig,
	logger *zap.Logger,
) QueryService {
	return &queryService{
		registry:  reg,
		executor:  executor,
		generator: generator,
		shaper:    shaper,
		rules:     rules,
		store:     store,
		cfg:       cfg,
		logger:    logger.Named("query"),
	}
}

var _ Executor = (*federation.Engine)(nil)

func (s *queryService) Ask(ctx context.Context, tenant string, req AskRequest) (*AskResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("question is required: %w", apperrors.ErrValidation)
	}

	if s.generator.Classify(ctx, req.Question, req.History) == llm.IntentChat {
		reply := s.generator.ChatReply(ctx, req.Question, req.History)
		return &AskResponse{Reply: &models.ChatReply{Message: reply}}, nil
	}

	query, explanation, scope, err := s.generate(ctx, tenant, req)
	if err != nil {
		return nil, err
	}

	result, err := s.materialize(ctx, req.Question, query, explanation, scope)
	if err != nil {
		return nil, err
	}
	return &AskResponse{Result: result}, nil
}

func (s *queryService) RunSQL(ctx context.Context, tenant, sqlText string, datasourceIDs []string, question string) (*models.QueryResult, error) {
	scope, err := s.resolve(ctx, tenant, datasourceIDs)
	if err != nil {
		return nil, err
	}

	normalized, err := enginesql.Normalize(sqlText)
	if err != nil {
		return nil, err
	}
	if err := enginesql.CheckReadOnly(normalized); err != nil {
		return nil, err
	}
	if err := enginesql.CheckAllowed(normalized, scope.allowed); err != nil {
		return nil, err
	}
	// The statement runs unclamped: the executor fetches at most cap+1 rows
	// and reports Truncated itself. Rewriting a LIMIT here would make an
	// over-cap match set indistinguishable from an exact-cap one.

	if question == "" {
		question = normalized
	}
	return s.materialize(ctx, question, normalized, "", scope)
}

// queryScope is the resolved selection context one pipeline run executes
// against.
type queryScope struct {
	refs    []models.TableRef
	sources map[string]models.Datasource
	allowed map[string]struct{}
}

// resolve computes table refs, the datasource lookup, and the allow-list
// for the selected datasources. Fails fast before any federation work.
func (s *queryService) resolve(ctx context.Context, tenant string, datasourceIDs []string) (*queryScope, error) {
	refs, err := s.registry.ResolveTableRefs(ctx, tenant, datasourceIDs)
	if err != nil {
		return nil, err
	}

	allowed, err := s.registry.AllowedTables(ctx, tenant, datasourceIDs)
	if err != nil {
		return nil, err
	}

	merged, err := s.registry.ListSources(ctx, tenant)
	if err != nil {
		return nil, err
	}
	sources := make(map[string]models.Datasource, len(merged))
	for _, ds := range merged {
		sources[ds.ID] = ds
	}

	return &queryScope{refs: refs, sources: sources, allowed: allowed}, nil
}

// generate resolves the scope, grounds a prompt in the introspected
// schema, and produces validated SQL plus its explanation.
func (s *queryService) generate(ctx context.Context, tenant string, req AskRequest) (query, explanation string, scope *queryScope, err error) {
	scope, err = s.resolve(ctx, tenant, req.DatasourceIDs)
	if err != nil {
		return "", "", nil, err
	}

	schema, err := s.executor.DescribeTables(ctx, scope.refs, scope.sources)
	if err != nil {
		return "", "", nil, err
	}

	tables := make([]llm.SchemaTable, 0, len(scope.refs))
	for _, ref := range scope.refs {
		tables = append(tables, llm.SchemaTable{Alias: ref.Alias, Columns: schema[ref.Alias]})
	}

	prompt := &llm.Prompt{
		Question:        req.Question,
		Tables:          tables,
		History:         req.History,
		MaxRows:         s.cfg.MaxRows,
		MaxHistoryTurns: s.cfg.MaxHistoryTurns,
	}

	query, usedFallback, err := s.generator.Generate(ctx, prompt, scope.allowed)
	if err != nil {
		return "", "", nil, err
	}
	if usedFallback {
		s.logger.Info("rule-based SQL served", zap.String("tenant", tenant))
	}

	return query, s.generator.Explain(ctx, req.Question, query), scope, nil
}

// materialize executes validated SQL and shapes the stored QueryResult.
func (s *queryService) materialize(ctx context.Context, question, query, explanation string, scope *queryScope) (*models.QueryResult, error) {
	res, err := s.executor.Execute(ctx, query, scope.refs, scope.sources)
	if err != nil {
		return nil, err
	}

	spec := s.shaper.Infer(question, res.Columns, res.Rows)
	narrative := s.shaper.Narrative(question, query, scope.refs, res.Columns, res.Rows, res.Truncated)

	result := &models.QueryResult{
		Question:    question,
		SQL:         query,
		Columns:     res.Columns,
		Rows:        res.Rows,
		RowCount:    len(res.Rows),
		Truncated:   res.Truncated,
		RowCap:      s.cfg.MaxRows,
		Analysis:    narrative,
		Chart:       &spec,
		Explanation: explanation,
	}
	s.store.Save(result)
	return result, nil
}

// UserMessage converts a pipeline error into the human-readable text
// surfaced over HTTP and the event stream. Messages never leak connection
// credentials; backend text is sanitized before it reaches the error.
func UserMessage(err error) string {
	var (
		unsafeErr    *apperrors.UnsafeStatementError
		tableErr     *apperrors.UnauthorizedTableError
		fedErr       *apperrors.FederationError
		drilldownErr *apperrors.UnsupportedDrilldownError
	)

	switch {
	case errors.As(err, &unsafeErr), errors.As(err, &tableErr), errors.As(err, &drilldownErr):
		return err.Error()
	case errors.As(err, &fedErr):
		return fmt.Sprintf("datasource %q is unavailable: %s", fedErr.DatasourceID, fedErr.Err)
	case errors.Is(err, apperrors.ErrNoDatasources):
		return "select at least one datasource"
	case errors.Is(err, apperrors.ErrTimeout):
		return "query exceeded the execution time budget"
	case errors.Is(err, apperrors.ErrNotFound):
		return err.Error()
	case errors.Is(err, apperrors.ErrValidation):
		return err.Error()
	default:
		return "query failed: " + err.Error()
	}
}
