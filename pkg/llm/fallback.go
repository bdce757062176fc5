package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/models"
	enginesql "github.com/askdb-io/askdb-engine/pkg/sql"
)

// RuleBasedClient is the fully offline LanguageModel used as guaranteed
// fallback. Everything it produces is derived from the question text, the
// prompt's schema, and the rule table; same inputs, same SQL.
type RuleBasedClient struct {
	rules *Rules
}

// NewRuleBasedClient creates the fallback client.
func NewRuleBasedClient(rules *Rules) *RuleBasedClient {
	if rules == nil {
		rules = DefaultRules()
	}
	return &RuleBasedClient{rules: rules}
}

var (
	cnWindowPattern = regexp.MustCompile(`(?:最近|近)\s*(\d+)\s*天`)
	enWindowPattern = regexp.MustCompile(`(?i)last\s+(\d+)\s+days?`)
	topNPattern     = regexp.MustCompile(`(?i)(?:top\s*(\d+)|前\s*(\d+)\s*名?)`)
)

func (c *RuleBasedClient) ClassifyIntent(_ context.Context, question string, _ []models.HistoryTurn) (Intent, error) {
	if containsAny(strings.ToLower(question), c.rules.ChatKeywords) {
		return IntentChat, nil
	}
	return IntentData, nil
}

func (c *RuleBasedClient) Chat(_ context.Context, question string, _ []models.HistoryTurn) (string, error) {
	if strings.ContainsAny(question, "你您谢") {
		return "你好！我可以帮你用自然语言查询已接入的数据源，试试问一个数据问题，比如“最近7天的告警趋势”。", nil
	}
	return "Hello! Ask me a data question about your registered datasources, for example \"top 10 units by alarm count\".", nil
}

func (c *RuleBasedClient) GenerateSQL(_ context.Context, p *Prompt) (string, error) {
	if len(p.Tables) == 0 {
		return "", fmt.Errorf("%w: no tables available for rule-based generation", apperrors.ErrModelUnavailable)
	}

	question := strings.ToLower(p.Question)
	matched := c.matchTables(question, p.Tables)

	// Multi-topic questions that name two tables become a join on the
	// first shared column; otherwise the best (or first) table wins.
	if len(matched) >= 2 {
		if query, ok := buildJoin(matched[0], matched[1], p.MaxRows); ok {
			return query, nil
		}
	}

	table := &p.Tables[0]
	if len(matched) > 0 {
		table = matched[0]
	}

	timeCol := c.timeColumn(table)
	dimCol := c.dimensionColumn(table, timeCol)
	where := c.timeWindow(question, timeCol)

	switch {
	case containsAny(question, c.rules.TrendKeywords) && timeCol != "":
		return buildTrend(table.Alias, timeCol, where, p.MaxRows), nil

	case (topN(question) > 0 || containsAny(question, c.rules.RankingKeywords)) && dimCol != "":
		n := topN(question)
		if n <= 0 || n > p.MaxRows {
			n = 10
		}
		return buildRanking(table.Alias, dimCol, where, n), nil

	case containsAny(question, c.rules.RatioKeywords) && dimCol != "":
		return buildGrouping(table.Alias, dimCol, where, 12), nil

	case containsAny(question, c.rules.GroupKeywords) && dimCol != "":
		return buildGrouping(table.Alias, dimCol, where, p.MaxRows), nil

	default:
		return buildDetail(table.Alias, timeCol, where, p.MaxRows), nil
	}
}

func (c *RuleBasedClient) ExplainSQL(_ context.Context, _ string, query string) (string, error) {
	clauses := enginesql.ParseClauses(query)

	var parts []string
	if clauses.FromTable != "" {
		parts = append(parts, fmt.Sprintf("查询表 %s", clauses.FromTable))
	}
	if len(clauses.GroupBy) > 0 {
		parts = append(parts, fmt.Sprintf("按 %s 分组", strings.Join(clauses.GroupBy, "、")))
	}
	if len(clauses.Aggregates) > 0 {
		parts = append(parts, fmt.Sprintf("使用聚合 %s", strings.Join(clauses.Aggregates, "、")))
	}
	if clauses.Where != "" {
		parts = append(parts, "带筛选条件")
	}
	if clauses.Limit > 0 {
		parts = append(parts, fmt.Sprintf("最多返回 %d 行", clauses.Limit))
	}
	if len(parts) == 0 {
		return "该查询直接返回所选数据。", nil
	}
	return strings.Join(parts, "，") + "。", nil
}

// matchTables scores tables by whether the question mentions a fragment of
// their alias, preserving prompt order among equals so generation stays
// deterministic.
func (c *RuleBasedClient) matchTables(question string, tables []SchemaTable) []*SchemaTable {
	var matched []*SchemaTable
	for i := range tables {
		if aliasMentioned(question, tables[i].Alias) {
			matched = append(matched, &tables[i])
		}
	}
	return matched
}

func aliasMentioned(question, alias string) bool {
	for _, fragment := range strings.Split(strings.ToLower(alias), "_") {
		if len(fragment) >= 3 && strings.Contains(question, fragment) {
			return true
		}
	}
	return false
}

// timeColumn picks the first column matching a time hint, in hint order.
func (c *RuleBasedClient) timeColumn(table *SchemaTable) string {
	for _, hint := range c.rules.TimeColumnHints {
		for _, col := range table.Columns {
			if strings.Contains(strings.ToLower(col.Name), hint) {
				return col.Name
			}
		}
	}
	return ""
}

// dimensionColumn picks the first textual, non-time column to group by.
func (c *RuleBasedClient) dimensionColumn(table *SchemaTable, timeCol string) string {
	for _, col := range table.Columns {
		if col.Name == timeCol || isNumericType(col.DataType) {
			continue
		}
		return col.Name
	}
	return ""
}

// timeWindow renders the "最近N天"/"last N days" WHERE fragment, or "".
func (c *RuleBasedClient) timeWindow(question, timeCol string) string {
	if timeCol == "" {
		return ""
	}
	days := 0
	if m := cnWindowPattern.FindStringSubmatch(question); m != nil {
		days, _ = strconv.Atoi(m[1])
	} else if m := enWindowPattern.FindStringSubmatch(question); m != nil {
		days, _ = strconv.Atoi(m[1])
	}
	if days <= 0 {
		return ""
	}
	return fmt.Sprintf("%s >= now() - INTERVAL %d DAY", timeCol, days)
}

func topN(question string) int {
	m := topNPattern.FindStringSubmatch(question)
	if m == nil {
		return 0
	}
	for _, group := range m[1:] {
		if group != "" {
			n, _ := strconv.Atoi(group)
			return n
		}
	}
	return 0
}

func buildTrend(table, timeCol, where string, maxRows int) string {
	return fmt.Sprintf(
		"SELECT strftime(%s, '%%Y-%%m') AS 月份, COUNT(*) AS 数量 FROM %s%s GROUP BY 月份 ORDER BY 月份 LIMIT %d",
		timeCol, table, whereClause(where), maxRows)
}

func buildRanking(table, dimCol, where string, n int) string {
	return fmt.Sprintf(
		"SELECT %s, COUNT(*) AS 数量 FROM %s%s GROUP BY %s ORDER BY 数量 DESC LIMIT %d",
		dimCol, table, whereClause(where), dimCol, n)
}

func buildGrouping(table, dimCol, where string, limit int) string {
	return fmt.Sprintf(
		"SELECT %s, COUNT(*) AS 数量 FROM %s%s GROUP BY %s ORDER BY 数量 DESC LIMIT %d",
		dimCol, table, whereClause(where), dimCol, limit)
}

func buildDetail(table, timeCol, where string, maxRows int) string {
	order := ""
	if timeCol != "" {
		order = fmt.Sprintf(" ORDER BY %s DESC", timeCol)
	}
	return fmt.Sprintf("SELECT * FROM %s%s%s LIMIT %d", table, whereClause(where), order, maxRows)
}

// buildJoin joins two tables on their first shared column name.
func buildJoin(a, b *SchemaTable, maxRows int) (string, bool) {
	for _, colA := range a.Columns {
		for _, colB := range b.Columns {
			if strings.EqualFold(colA.Name, colB.Name) {
				return fmt.Sprintf(
					"SELECT * FROM %s JOIN %s ON %s.%s = %s.%s LIMIT %d",
					a.Alias, b.Alias, a.Alias, colA.Name, b.Alias, colB.Name, maxRows), true
			}
		}
	}
	return "", false
}

func whereClause(where string) string {
	if where == "" {
		return ""
	}
	return " WHERE " + where
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func isNumericType(dataType string) bool {
	t := strings.ToLower(dataType)
	for _, hint := range []string{"int", "decimal", "numeric", "double", "float", "real"} {
		if strings.Contains(t, hint) {
			return true
		}
	}
	return false
}

// Ensure RuleBasedClient implements LanguageModel at compile time.
var _ LanguageModel = (*RuleBasedClient)(nil)
