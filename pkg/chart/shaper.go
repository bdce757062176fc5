// Package chart turns a raw query result into a chart encoding and a
// deterministic analysis narrative. Everything here works from the question
// text, the SQL, and the result alone; no model call is ever needed.
package chart

import (
	"strings"

	"github.com/askdb-io/askdb-engine/pkg/llm"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

// pieRowLimit is the largest composition a pie chart stays readable at.
const pieRowLimit = 12

// explicitTypes maps question keywords to the chart type they demand.
// Checked first: an explicit ask wins over shape inference.
var explicitTypes = []struct {
	keywords  []string
	chartType models.ChartType
}{
	{[]string{"散点", "scatter"}, models.ChartScatter},
	{[]string{"热力", "heatmap", "heat map"}, models.ChartHeatmap},
	{[]string{"堆叠", "stacked"}, models.ChartBarStacked},
	{[]string{"分组柱", "grouped bar"}, models.ChartBarGrouped},
	{[]string{"横向", "条形", "horizontal"}, models.ChartBarHorizontal},
	{[]string{"面积", "area chart", "area图"}, models.ChartArea},
}

// Shaper infers chart encodings from question intent and result shape.
type Shaper struct {
	rules *llm.Rules
}

func NewShaper(rules *llm.Rules) *Shaper {
	return &Shaper{rules: rules}
}

// Infer picks the chart encoding for one result. Precedence: explicit
// chart-type keyword, then trend keywords (line), then ratio keywords on a
// small result (pie), then bar. Results too narrow or without a numeric
// column stay tabular.
func (s *Shaper) Infer(question string, columns []string, rows []map[string]any) models.ChartSpec {
	category, numerics := classifyColumns(columns, rows)

	if len(columns) < 2 || len(numerics) == 0 || category == "" {
		return models.ChartSpec{Type: models.ChartTable}
	}

	q := strings.ToLower(question)

	for _, e := range explicitTypes {
		if containsAny(q, e.keywords) {
			return bindChart(e.chartType, category, numerics)
		}
	}

	if containsAny(q, s.rules.TrendKeywords) {
		spec := bindChart(models.ChartLine, category, numerics)
		if len(numerics) >= 2 {
			spec.Series = numerics
		}
		return spec
	}

	if containsAny(q, s.rules.RatioKeywords) && len(rows) <= pieRowLimit {
		return models.ChartSpec{
			Type:  models.ChartPie,
			Name:  category,
			Value: numerics[0],
		}
	}

	return bindChart(models.ChartBar, category, numerics)
}

func bindChart(t models.ChartType, category string, numerics []string) models.ChartSpec {
	switch t {
	case models.ChartPie:
		return models.ChartSpec{Type: t, Name: category, Value: numerics[0]}
	case models.ChartHeatmap:
		spec := models.ChartSpec{Type: t, X: category, Value: numerics[0]}
		if len(numerics) >= 2 {
			spec.Y = numerics[0]
			spec.Value = numerics[1]
		}
		return spec
	default:
		return models.ChartSpec{Type: t, X: category, Y: numerics[0]}
	}
}

// classifyColumns splits the result's columns into the first textual
// (category) column and the numeric columns, judged by the first non-nil
// value each column holds.
func classifyColumns(columns []string, rows []map[string]any) (category string, numerics []string) {
	for _, col := range columns {
		if isNumericColumn(col, rows) {
			numerics = append(numerics, col)
		} else if category == "" {
			category = col
		}
	}
	return category, numerics
}

func isNumericColumn(col string, rows []map[string]any) bool {
	for _, row := range rows {
		switch row[col].(type) {
		case nil:
			continue
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return true
		default:
			return false
		}
	}
	return false
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(q, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
