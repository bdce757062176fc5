package models

// EventType labels one event in the ask stream.
type EventType string

const (
	EventSQLExplainDelta EventType = "sql_explain_delta"
	EventSQLExplain      EventType = "sql_explain"
	EventSQLDelta        EventType = "sql_delta"
	EventSQL             EventType = "sql"
	EventAnalysisDelta   EventType = "analysis_delta"
	EventAnalysis        EventType = "analysis"
	EventResult          EventType = "result"
	EventError           EventType = "error"
	EventDone            EventType = "done"
)

// Event is one element of the ask stream. Delta events carry incremental
// text in Content; the whole-value event that follows them is authoritative.
type Event struct {
	Type    EventType    `json:"type"`
	Content string       `json:"content,omitempty"`
	Result  *QueryResult `json:"result,omitempty"`
}

// NewDeltaEvent builds a delta event carrying one text increment.
func NewDeltaEvent(t EventType, content string) Event {
	return Event{Type: t, Content: content}
}

// NewErrorEvent builds the single error event emitted before done.
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Content: message}
}
