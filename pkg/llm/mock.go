package llm

import (
	"context"

	"github.com/askdb-io/askdb-engine/pkg/models"
)

// MockModel is a test double with overridable behavior per operation.
// Unset functions return zero values.
type MockModel struct {
	ClassifyIntentFunc func(ctx context.Context, question string, history []models.HistoryTurn) (Intent, error)
	ChatFunc           func(ctx context.Context, question string, history []models.HistoryTurn) (string, error)
	GenerateSQLFunc    func(ctx context.Context, prompt *Prompt) (string, error)
	ExplainSQLFunc     func(ctx context.Context, question, query string) (string, error)
}

func (m *MockModel) ClassifyIntent(ctx context.Context, question string, history []models.HistoryTurn) (Intent, error) {
	if m.ClassifyIntentFunc != nil {
		return m.ClassifyIntentFunc(ctx, question, history)
	}
	return IntentData, nil
}

func (m *MockModel) Chat(ctx context.Context, question string, history []models.HistoryTurn) (string, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, question, history)
	}
	return "", nil
}

func (m *MockModel) GenerateSQL(ctx context.Context, prompt *Prompt) (string, error) {
	if m.GenerateSQLFunc != nil {
		return m.GenerateSQLFunc(ctx, prompt)
	}
	return "", nil
}

func (m *MockModel) ExplainSQL(ctx context.Context, question, query string) (string, error) {
	if m.ExplainSQLFunc != nil {
		return m.ExplainSQLFunc(ctx, question, query)
	}
	return "", nil
}

// Ensure MockModel implements LanguageModel at compile time.
var _ LanguageModel = (*MockModel)(nil)
