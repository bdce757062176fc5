package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/llm"
	"github.com/askdb-io/askdb-engine/pkg/models"
	enginesql "github.com/askdb-io/askdb-engine/pkg/sql"
)

// Drilldown reconstructs a detail query from a stored result and a clicked
// field/value: the prior SQL's FROM table is matched against the rule
// table, and a narrow exact-match or month-bucket query is synthesized,
// freshest rows first, capped well below the normal row limit.
func (s *queryService) Drilldown(ctx context.Context, tenant, resultID, field string, value any, datasourceIDs []string) (*models.QueryResult, error) {
	prior, ok := s.store.Get(resultID)
	if !ok {
		return nil, fmt.Errorf("result %q: %w", resultID, apperrors.ErrNotFound)
	}

	table := enginesql.ParseClauses(prior.SQL).FromTable
	if table == "" {
		return nil, &apperrors.UnsupportedDrilldownError{Table: "?", Field: field}
	}

	rule := s.matchDrilldownRule(table, field)
	if rule == nil {
		return nil, &apperrors.UnsupportedDrilldownError{Table: table, Field: field}
	}

	scope, err := s.resolve(ctx, tenant, datasourceIDs)
	if err != nil {
		return nil, err
	}

	var ref *models.TableRef
	for i := range scope.refs {
		if strings.EqualFold(scope.refs[i].Alias, table) {
			ref = &scope.refs[i]
			break
		}
	}
	if ref == nil {
		return nil, &apperrors.UnauthorizedTableError{Tables: []string{table}}
	}

	if err := enginesql.CheckValueForInjection(field, value); err != nil {
		return nil, err
	}
	literal, err := literalFor(value)
	if err != nil {
		return nil, err
	}

	schema, err := s.executor.DescribeTables(ctx, []models.TableRef{*ref}, scope.sources)
	if err != nil {
		return nil, err
	}
	timeCol := timeColumn(s.rules.TimeColumnHints, schema[ref.Alias])

	var condition string
	switch rule.Kind {
	case "month":
		if timeCol == "" {
			return nil, &apperrors.UnsupportedDrilldownError{Table: table, Field: field}
		}
		condition = fmt.Sprintf("strftime(%s, '%%Y-%%m') = %s", timeCol, literal)
	case "exact":
		column := rule.Column
		if column == "" {
			column = field
		}
		if err := enginesql.ValidateIdentifier(column, "drilldown column"); err != nil {
			return nil, err
		}
		condition = fmt.Sprintf("%s = %s", column, literal)
	default:
		return nil, &apperrors.UnsupportedDrilldownError{Table: table, Field: field}
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s", ref.Alias, condition)
	if timeCol != "" {
		query += fmt.Sprintf(" ORDER BY %s DESC", timeCol)
	}
	query += fmt.Sprintf(" LIMIT %d", s.cfg.DrilldownRowCap)

	if err := enginesql.CheckAllowed(query, scope.allowed); err != nil {
		return nil, err
	}

	question := fmt.Sprintf("drilldown: %s=%v", field, value)
	return s.materialize(ctx, question, query, "", scope)
}

// matchDrilldownRule finds the first rule whose table matches and whose
// field fragment occurs in the clicked field.
func (s *queryService) matchDrilldownRule(table, field string) *llm.DrilldownRule {
	loweredField := strings.ToLower(field)
	for i := range s.rules.Drilldown {
		rule := &s.rules.Drilldown[i]
		if !strings.EqualFold(rule.Table, table) {
			continue
		}
		if strings.Contains(loweredField, strings.ToLower(rule.FieldContains)) {
			return rule
		}
	}
	return nil
}

// timeColumn picks the table's time column by hint substrings, first hint
// wins.
func timeColumn(hints []string, columns []models.Column) string {
	for _, hint := range hints {
		for _, col := range columns {
			if strings.Contains(strings.ToLower(col.Name), strings.ToLower(hint)) {
				return col.Name
			}
		}
	}
	return ""
}

// literalFor renders the clicked value as a SQL literal. Strings are
// single-quote escaped; numbers pass through as-is.
func literalFor(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return enginesql.QuoteLiteral(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("unsupported drill-down value type %T: %w", value, apperrors.ErrValidation)
	}
}
