package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-io/askdb-engine/pkg/llm"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

func collectStream(t *testing.T, svc *queryService, req AskRequest) []models.Event {
	t.Helper()

	events := make(chan models.Event, 256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.AskStream(context.Background(), "t1", req, events)
	}()
	<-done
	close(events)

	var out []models.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

// eventOrder returns the sequence of whole-value event types with delta
// runs collapsed into their terminal event.
func eventOrder(events []models.Event) []models.EventType {
	var order []models.EventType
	for _, ev := range events {
		switch ev.Type {
		case models.EventSQLExplainDelta, models.EventSQLDelta, models.EventAnalysisDelta:
			continue
		default:
			order = append(order, ev.Type)
		}
	}
	return order
}

func TestAskStreamEventOrder(t *testing.T) {
	model := &llm.MockModel{
		GenerateSQLFunc: func(_ context.Context, _ *llm.Prompt) (string, error) {
			return "SELECT unit_name, COUNT(*) AS 数量 FROM fire_alarm_record GROUP BY unit_name", nil
		},
		ExplainSQLFunc: func(_ context.Context, _, _ string) (string, error) {
			return "Counts alarms per unit, grouped by unit name.", nil
		},
	}
	svc, _ := newTestService(t, model)

	events := collectStream(t, svc, AskRequest{
		Question:      "各单位火警数量",
		DatasourceIDs: []string{"main"},
	})

	assert.Equal(t, []models.EventType{
		models.EventSQLExplain,
		models.EventSQL,
		models.EventAnalysis,
		models.EventResult,
		models.EventDone,
	}, eventOrder(events))

	// Deltas precede their whole-value event and concatenate to it exactly.
	var explainDeltas, sqlDeltas, analysisDeltas strings.Builder
	var explain, sqlText, analysis string
	for _, ev := range events {
		switch ev.Type {
		case models.EventSQLExplainDelta:
			assert.Empty(t, explain, "explain deltas must precede sql_explain")
			explainDeltas.WriteString(ev.Content)
		case models.EventSQLExplain:
			explain = ev.Content
		case models.EventSQLDelta:
			assert.Empty(t, sqlText, "sql deltas must precede sql")
			sqlDeltas.WriteString(ev.Content)
		case models.EventSQL:
			sqlText = ev.Content
		case models.EventAnalysisDelta:
			assert.Empty(t, analysis, "analysis deltas must precede analysis")
			analysisDeltas.WriteString(ev.Content)
		case models.EventAnalysis:
			analysis = ev.Content
		}
	}
	assert.Equal(t, explain, explainDeltas.String())
	assert.Equal(t, sqlText, sqlDeltas.String())
	assert.Equal(t, analysis, analysisDeltas.String())

	var result *models.QueryResult
	for _, ev := range events {
		if ev.Type == models.EventResult {
			result = ev.Result
		}
	}
	require.NotNil(t, result)
	assert.Equal(t, sqlText, result.SQL)
	assert.Equal(t, 2, result.RowCount)
}

func TestAskStreamErrorBeforeSQL(t *testing.T) {
	svc, _ := newTestService(t, nil)

	events := collectStream(t, svc, AskRequest{Question: "火警趋势"})

	require.Len(t, events, 2)
	assert.Equal(t, models.EventError, events[0].Type)
	assert.Contains(t, events[0].Content, "datasource")
	assert.Equal(t, models.EventDone, events[1].Type)
}

func TestAskStreamErrorAfterSQL(t *testing.T) {
	model := &llm.MockModel{
		GenerateSQLFunc: func(_ context.Context, _ *llm.Prompt) (string, error) {
			return "SELECT * FROM fire_alarm_record", nil
		},
	}
	svc, executor := newTestService(t, model)
	executor.err = errorExec{}

	events := collectStream(t, svc, AskRequest{
		Question:      "明细",
		DatasourceIDs: []string{"main"},
	})

	order := eventOrder(events)
	assert.Equal(t, []models.EventType{
		models.EventSQLExplain,
		models.EventSQL,
		models.EventError,
		models.EventDone,
	}, order)
}

func TestAskStreamSmallTalk(t *testing.T) {
	svc, _ := newTestService(t, nil)

	events := collectStream(t, svc, AskRequest{
		Question:      "你好",
		DatasourceIDs: []string{"main"},
	})

	order := eventOrder(events)
	assert.Equal(t, []models.EventType{models.EventAnalysis, models.EventDone}, order)
}

func TestAskStreamCancelledCallerStops(t *testing.T) {
	svc, _ := newTestService(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unbuffered channel with no reader: only a cancelled context lets the
	// stream abandon delivery instead of blocking forever.
	events := make(chan models.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.AskStream(ctx, "t1", AskRequest{Question: "你好", DatasourceIDs: []string{"main"}}, events)
	}()
	<-done
}

type errorExec struct{}

func (errorExec) Error() string { return "binder error: unknown column" }
