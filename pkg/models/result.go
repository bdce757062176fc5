package models

// ChartType enumerates the supported chart encodings.
type ChartType string

const (
	ChartTable         ChartType = "table"
	ChartLine          ChartType = "line"
	ChartArea          ChartType = "area"
	ChartBar           ChartType = "bar"
	ChartBarGrouped    ChartType = "bar_grouped"
	ChartBarStacked    ChartType = "bar_stacked"
	ChartBarHorizontal ChartType = "bar_horizontal"
	ChartPie           ChartType = "pie"
	ChartScatter       ChartType = "scatter"
	ChartHeatmap       ChartType = "heatmap"
)

// ChartSpec binds a chart type to the result columns it draws from.
// Which fields are set depends on the type: pie uses Name/Value, scatter
// and heatmap use X/Y(/Value), everything else uses X plus Series.
type ChartSpec struct {
	Type   ChartType `json:"type"`
	X      string    `json:"x,omitempty"`
	Y      string    `json:"y,omitempty"`
	Name   string    `json:"name,omitempty"`
	Value  string    `json:"value,omitempty"`
	Series []string  `json:"series,omitempty"`
}

// QueryResult is the outcome of one ask/runSQL invocation.
type QueryResult struct {
	ID        string           `json:"id"`
	Question  string           `json:"question"`
	SQL       string           `json:"sql"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
	RowCap    int              `json:"row_cap"`
	Analysis  string           `json:"analysis"`
	Chart     *ChartSpec       `json:"chart,omitempty"`
	// Explanation is the model-generated description of the SQL, when a
	// model was available. The Analysis narrative never depends on it.
	Explanation string `json:"explanation,omitempty"`
}

// ChatReply is returned when intent classification routes a question to the
// small-talk path instead of SQL generation.
type ChatReply struct {
	Message string `json:"message"`
}

// HistoryTurn is one prior exchange carried into prompt construction.
type HistoryTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
