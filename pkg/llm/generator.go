package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/models"
	enginesql "github.com/askdb-io/askdb-engine/pkg/sql"
)

// Generator wraps a LanguageModel with the fallback policy: model output
// that is unreachable, unsafe, or out of table scope is silently replaced
// by the rule-based generator's output. The caller only sees a failure
// when the fallback cannot produce a safe statement either.
type Generator struct {
	model    LanguageModel
	fallback *RuleBasedClient
	logger   *zap.Logger
}

// NewGenerator creates a generator. model may be the rule-based client
// itself, in which case the primary path and the fallback coincide.
func NewGenerator(model LanguageModel, fallback *RuleBasedClient, logger *zap.Logger) *Generator {
	return &Generator{
		model:    model,
		fallback: fallback,
		logger:   logger.Named("generator"),
	}
}

// Model exposes the underlying LanguageModel for the chat and explain
// paths, which have their own degradation behavior.
func (g *Generator) Model() LanguageModel {
	return g.model
}

// Generate produces a validated, allow-list-checked, LIMIT-bounded SQL
// statement for the prompt. usedFallback reports whether the rule-based
// path produced the final statement.
func (g *Generator) Generate(ctx context.Context, prompt *Prompt, allowed map[string]struct{}) (query string, usedFallback bool, err error) {
	candidate, modelErr := g.model.GenerateSQL(ctx, prompt)
	if modelErr == nil {
		vetted, vetErr := g.vet(candidate, prompt.MaxRows, allowed)
		if vetErr == nil {
			return vetted, false, nil
		}
		g.logger.Warn("model SQL rejected, falling back",
			zap.String("reason", vetErr.Error()))
	} else {
		g.logger.Warn("model unavailable, falling back", zap.Error(modelErr))
	}

	candidate, err = g.fallback.GenerateSQL(ctx, prompt)
	if err != nil {
		return "", true, err
	}
	vetted, err := g.vet(candidate, prompt.MaxRows, allowed)
	if err != nil {
		return "", true, err
	}
	return vetted, true, nil
}

// Classify runs intent classification with degradation: a failing model
// never blocks the pipeline, the rule-based classifier answers instead.
func (g *Generator) Classify(ctx context.Context, question string, history []models.HistoryTurn) Intent {
	intent, err := g.model.ClassifyIntent(ctx, question, history)
	if err == nil && intent != IntentUnknown {
		return intent
	}
	if err != nil {
		g.logger.Debug("intent classification degraded to rules", zap.Error(err))
	}
	intent, _ = g.fallback.ClassifyIntent(ctx, question, history)
	return intent
}

// ChatReply produces the small-talk response, degrading to the rule-based
// client when the model is unreachable.
func (g *Generator) ChatReply(ctx context.Context, question string, history []models.HistoryTurn) string {
	reply, err := g.model.Chat(ctx, question, history)
	if err == nil {
		return reply
	}
	g.logger.Debug("chat degraded to rules", zap.Error(err))
	reply, _ = g.fallback.Chat(ctx, question, history)
	return reply
}

// Explain describes the statement for the end user. The rule-based
// explanation steps in when the model fails, so an explanation always
// exists.
func (g *Generator) Explain(ctx context.Context, question, query string) string {
	text, err := g.model.ExplainSQL(ctx, question, query)
	if err == nil {
		return text
	}
	g.logger.Debug("explanation degraded to rules", zap.Error(err))
	text, _ = g.fallback.ExplainSQL(ctx, question, query)
	return text
}

// vet normalizes a candidate and enforces the safety and allow-list
// contracts plus the LIMIT bound.
func (g *Generator) vet(candidate string, maxRows int, allowed map[string]struct{}) (string, error) {
	normalized, err := enginesql.Normalize(candidate)
	if err != nil {
		return "", err
	}
	if err := enginesql.CheckReadOnly(normalized); err != nil {
		return "", err
	}
	if err := enginesql.CheckAllowed(normalized, allowed); err != nil {
		return "", err
	}
	return strings.TrimSpace(enginesql.EnsureLimit(normalized, maxRows)), nil
}
