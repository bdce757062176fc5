// Package llm provides the language-model abstraction behind NL→SQL
// generation: network-backed clients plus a deterministic rule-based
// fallback that keeps the engine answering when no model is reachable.
package llm

import (
	"context"

	"github.com/askdb-io/askdb-engine/pkg/models"
)

// Intent is the coarse classification of an incoming question.
type Intent string

const (
	IntentChat    Intent = "chat"
	IntentData    Intent = "data"
	IntentUnknown Intent = "unknown"
)

// LanguageModel is the pluggable model capability. The engine holds one
// implementation chosen at construction and never branches on concrete
// type.
type LanguageModel interface {
	// ClassifyIntent decides whether the question wants data or small talk.
	ClassifyIntent(ctx context.Context, question string, history []models.HistoryTurn) (Intent, error)

	// Chat produces a conversational reply for the small-talk path.
	Chat(ctx context.Context, question string, history []models.HistoryTurn) (string, error)

	// GenerateSQL produces a candidate SELECT statement for the prompt.
	// Output is unvalidated; callers run it through the safety layer.
	GenerateSQL(ctx context.Context, prompt *Prompt) (string, error)

	// ExplainSQL describes what the statement does, for the end user.
	ExplainSQL(ctx context.Context, question, query string) (string, error)
}
