package llm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the keyword rule table driving the rule-based generator and the
// drill-down resolver. It is configuration data, not code, so the engine
// can be pointed at any schema domain without rebuilding.
type Rules struct {
	// TimeColumnHints are substrings identifying a table's time column,
	// checked in order.
	TimeColumnHints []string `yaml:"time_column_hints"`

	// TrendKeywords route a question to a month-bucketed trend query and
	// later to a line chart.
	TrendKeywords []string `yaml:"trend_keywords"`

	// RatioKeywords route to a grouped composition query (pie-shaped).
	RatioKeywords []string `yaml:"ratio_keywords"`

	// RankingKeywords route to a grouped TOP-N query.
	RankingKeywords []string `yaml:"ranking_keywords"`

	// GroupKeywords force plain grouping when present without the above.
	GroupKeywords []string `yaml:"group_keywords"`

	// ChatKeywords short-circuit to the conversational path.
	ChatKeywords []string `yaml:"chat_keywords"`

	// Drilldown lists the supported (table, field) detail reconstructions.
	Drilldown []DrilldownRule `yaml:"drilldown"`
}

// DrilldownRule describes how one clicked field on one table expands into
// a detail query.
type DrilldownRule struct {
	Table string `yaml:"table"`
	// FieldContains matches the clicked field by substring.
	FieldContains string `yaml:"field_contains"`
	// Kind is "month" (value is a YYYY-MM bucket over the time column) or
	// "exact" (equality match on Column).
	Kind string `yaml:"kind"`
	// Column is the physical column for exact matches; empty means the
	// clicked field name itself.
	Column string `yaml:"column"`
}

// LoadRules reads a rule table from YAML. A missing file falls back to
// DefaultRules so a bare deployment still answers Chinese fire-safety demo
// questions, the domain the defaults are tuned for.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultRules(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return rules, nil
}

// DefaultRules returns the built-in rule table.
func DefaultRules() *Rules {
	return &Rules{
		TimeColumnHints: []string{"create_time", "created_at", "time", "date"},
		TrendKeywords:   []string{"趋势", "按月", "每月", "月度", "走势", "trend", "over time", "per month", "monthly"},
		RatioKeywords:   []string{"占比", "比例", "构成", "分布", "ratio", "proportion", "share", "breakdown"},
		RankingKeywords: []string{"top", "排名", "排行", "最多", "最高", "前", "ranking"},
		GroupKeywords:   []string{"按", "分组", "各", "by ", "group"},
		ChatKeywords:    []string{"你好", "您好", "hello", "hi ", "谢谢", "thanks", "thank you", "再见", "bye", "你是谁", "who are you"},
		Drilldown: []DrilldownRule{
			{Table: "fire_alarm_record", FieldContains: "月份", Kind: "month"},
			{Table: "fire_alarm_record", FieldContains: "单位", Kind: "exact", Column: "unit_name"},
			{Table: "fire_alarm_record", FieldContains: "location", Kind: "exact"},
			{Table: "fire_alarm_record", FieldContains: "status", Kind: "exact"},
		},
	}
}
