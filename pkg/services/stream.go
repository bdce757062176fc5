package services

import (
	"context"

	"github.com/askdb-io/askdb-engine/pkg/llm"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

// deltaChunkSize is how many runes each delta event carries.
const deltaChunkSize = 24

// AskStream emits the ordered event sequence for one ask. Deltas for each
// value precede its authoritative whole-value event; failures emit a
// single error event; the stream always terminates with done.
func (s *queryService) AskStream(ctx context.Context, tenant string, req AskRequest, events chan<- models.Event) {
	defer s.send(ctx, events, models.Event{Type: models.EventDone})

	if s.generator.Classify(ctx, req.Question, req.History) == llm.IntentChat {
		reply := s.generator.ChatReply(ctx, req.Question, req.History)
		if !s.sendDeltas(ctx, events, models.EventAnalysisDelta, reply) {
			return
		}
		s.send(ctx, events, models.Event{Type: models.EventAnalysis, Content: reply})
		return
	}

	query, explanation, scope, err := s.generate(ctx, tenant, req)
	if err != nil {
		s.send(ctx, events, models.NewErrorEvent(UserMessage(err)))
		return
	}

	// Explanation and SQL were computed together above; emission still has
	// to follow the documented order.
	if !s.sendDeltas(ctx, events, models.EventSQLExplainDelta, explanation) {
		return
	}
	if !s.send(ctx, events, models.Event{Type: models.EventSQLExplain, Content: explanation}) {
		return
	}
	if !s.sendDeltas(ctx, events, models.EventSQLDelta, query) {
		return
	}
	if !s.send(ctx, events, models.Event{Type: models.EventSQL, Content: query}) {
		return
	}

	result, err := s.materialize(ctx, req.Question, query, explanation, scope)
	if err != nil {
		s.send(ctx, events, models.NewErrorEvent(UserMessage(err)))
		return
	}

	if !s.sendDeltas(ctx, events, models.EventAnalysisDelta, result.Analysis) {
		return
	}
	if !s.send(ctx, events, models.Event{Type: models.EventAnalysis, Content: result.Analysis}) {
		return
	}
	s.send(ctx, events, models.Event{Type: models.EventResult, Result: result})
}

// sendDeltas splits text into small rune chunks and emits one delta event
// per chunk.
func (s *queryService) sendDeltas(ctx context.Context, events chan<- models.Event, t models.EventType, text string) bool {
	runes := []rune(text)
	for start := 0; start < len(runes); start += deltaChunkSize {
		end := start + deltaChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if !s.send(ctx, events, models.NewDeltaEvent(t, string(runes[start:end]))) {
			return false
		}
	}
	return true
}

// send delivers one event unless the caller is gone.
func (s *queryService) send(ctx context.Context, events chan<- models.Event, ev models.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
