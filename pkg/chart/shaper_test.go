package chart

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-io/askdb-engine/pkg/llm"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

func groupedRows(n int) ([]string, []map[string]any) {
	columns := []string{"unit_name", "数量"}
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"unit_name": fmt.Sprintf("单位%d", i), "数量": int64(i + 1)}
	}
	return columns, rows
}

func TestInferPrecedence(t *testing.T) {
	shaper := NewShaper(llm.DefaultRules())

	tests := []struct {
		name     string
		question string
		rowCount int
		expected models.ChartType
	}{
		{"explicit scatter wins over trend", "按月趋势的散点图", 5, models.ChartScatter},
		{"explicit heatmap", "show a heatmap of alarms", 5, models.ChartHeatmap},
		{"explicit stacked", "堆叠柱状图看各单位", 5, models.ChartBarStacked},
		{"explicit horizontal", "横向对比各单位", 5, models.ChartBarHorizontal},
		{"explicit area", "area chart of alarms", 5, models.ChartArea},
		{"trend keyword gives line", "最近半年火警趋势", 6, models.ChartLine},
		{"ratio with few rows gives pie", "各状态占比", 4, models.ChartPie},
		{"ratio with many rows falls back to bar", "各单位占比", 13, models.ChartBar},
		{"default is bar", "各单位火警数量", 5, models.ChartBar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			columns, rows := groupedRows(tt.rowCount)
			spec := shaper.Infer(tt.question, columns, rows)
			assert.Equal(t, tt.expected, spec.Type)
		})
	}
}

func TestInferBindsFields(t *testing.T) {
	shaper := NewShaper(llm.DefaultRules())
	columns, rows := groupedRows(4)

	bar := shaper.Infer("各单位火警数量", columns, rows)
	assert.Equal(t, "unit_name", bar.X)
	assert.Equal(t, "数量", bar.Y)

	pie := shaper.Infer("各单位占比", columns, rows)
	assert.Equal(t, "unit_name", pie.Name)
	assert.Equal(t, "数量", pie.Value)
}

func TestInferMultiSeriesLine(t *testing.T) {
	shaper := NewShaper(llm.DefaultRules())
	columns := []string{"月份", "open_count", "closed_count"}
	rows := []map[string]any{
		{"月份": "2026-01", "open_count": int64(3), "closed_count": int64(1)},
		{"月份": "2026-02", "open_count": int64(5), "closed_count": int64(2)},
	}

	spec := shaper.Infer("按月趋势", columns, rows)
	assert.Equal(t, models.ChartLine, spec.Type)
	assert.Equal(t, "月份", spec.X)
	assert.Equal(t, []string{"open_count", "closed_count"}, spec.Series)
}

func TestInferDegradesToTable(t *testing.T) {
	shaper := NewShaper(llm.DefaultRules())

	// Fewer than two columns.
	spec := shaper.Infer("趋势", []string{"n"}, []map[string]any{{"n": int64(1)}})
	assert.Equal(t, models.ChartTable, spec.Type)

	// No numeric column.
	spec = shaper.Infer("趋势", []string{"a", "b"}, []map[string]any{{"a": "x", "b": "y"}})
	assert.Equal(t, models.ChartTable, spec.Type)

	// Empty result still degrades rather than guessing.
	spec = shaper.Infer("趋势", []string{"a", "b"}, nil)
	assert.Equal(t, models.ChartTable, spec.Type)
}

func TestNarrativeDeterministic(t *testing.T) {
	shaper := NewShaper(llm.DefaultRules())
	columns, rows := groupedRows(3)
	refs := []models.TableRef{
		{Alias: "fire_alarm_record", PhysicalTable: "fire_alarm_record", DatasourceID: "main"},
		{Alias: "sales__orders", PhysicalTable: "orders", DatasourceID: "sales"},
	}
	query := `SELECT unit_name, COUNT(*) AS 数量 FROM fire_alarm_record WHERE status = 'open' GROUP BY unit_name ORDER BY 数量 DESC LIMIT 10`

	first := shaper.Narrative("各单位火警数量排名", query, refs, columns, rows, false)
	second := shaper.Narrative("各单位火警数量排名", query, refs, columns, rows, false)
	require.Equal(t, first, second)

	assert.Contains(t, first, "Intent: ranking")
	assert.Contains(t, first, "main (fire_alarm_record)")
	assert.Contains(t, first, "sales (orders)")
	assert.Contains(t, first, "Grouped by unit_name")
	assert.Contains(t, first, "COUNT")
	assert.Contains(t, first, "status = 'open'")
	assert.Contains(t, first, "Limited to 10 rows")
	assert.Contains(t, first, "Returned 3 rows")
	assert.Contains(t, first, "unit_name=单位0")
}

func TestNarrativeTruncationAndPreviewBounds(t *testing.T) {
	shaper := NewShaper(llm.DefaultRules())
	columns := []string{"c1", "c2", "c3", "c4", "c5"}
	rows := make([]map[string]any, 10)
	for i := range rows {
		rows[i] = map[string]any{
			"c1": i, "c2": i, "c3": i, "c4": i, "c5": "hidden",
		}
	}

	text := shaper.Narrative("明细", "SELECT * FROM t LIMIT 500", nil, columns, rows, true)
	assert.Contains(t, text, "truncated at the row cap")
	assert.NotContains(t, text, "c5=", "preview must stop at four columns")
	assert.Equal(t, 3, strings.Count(text, "c1="), "preview must stop at three rows")
}

func TestNarrativeLongWhereClauseTruncated(t *testing.T) {
	shaper := NewShaper(llm.DefaultRules())

	where := strings.Repeat("unit_name = 'x' AND ", 20) + "1=1"
	query := "SELECT * FROM fire_alarm_record WHERE " + where + " LIMIT 5"

	text := shaper.Narrative("明细", query, nil, []string{"id"}, nil, false)
	assert.Contains(t, text, "...")
}
