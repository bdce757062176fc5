package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/askdb-io/askdb-engine/pkg/models"
)

const (
	classifySystemPrompt = "You classify user questions for a data analysis assistant. " +
		"Answer with exactly one word: 'data' if the question asks about data, metrics, " +
		"records, or statistics; 'chat' if it is greeting or small talk; 'unknown' otherwise."

	chatSystemPrompt = "You are a friendly data analysis assistant. Reply briefly, in the " +
		"language of the user's message. Do not invent query results."

	sqlSystemPrompt = "You are an expert SQL writer. Follow the rules in the user message " +
		"exactly and output a single SQL statement with no commentary."

	explainSystemPrompt = "You explain SQL statements to non-technical users in one or two " +
		"sentences, in the language of their question. Never mention your reasoning process."
)

func renderClassifyPrompt(question string, history []models.HistoryTurn) string {
	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&b, "question: %s", question)
	return b.String()
}

func renderChatPrompt(question string, history []models.HistoryTurn) string {
	return renderClassifyPrompt(question, history)
}

func renderExplainPrompt(question, query string) string {
	return fmt.Sprintf("Question: %s\n\nSQL:\n%s", question, query)
}

// parseIntent maps a model reply onto the Intent enum, tolerating extra
// prose around the keyword.
func parseIntent(reply string) Intent {
	lower := strings.ToLower(reply)
	switch {
	case strings.Contains(lower, "data"):
		return IntentData
	case strings.Contains(lower, "chat"):
		return IntentChat
	default:
		return IntentUnknown
	}
}

var sqlFencePattern = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

// ExtractSQL strips markdown fences and surrounding prose from a model
// reply, returning the bare statement.
func ExtractSQL(reply string) string {
	if m := sqlFencePattern.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(reply)
}
