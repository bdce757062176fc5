package llm

import (
	"fmt"
	"strings"

	"github.com/askdb-io/askdb-engine/pkg/models"
)

// SchemaTable is one allow-listed table as the generator sees it: the
// query-schema alias plus introspected columns.
type SchemaTable struct {
	Alias   string
	Columns []models.Column
}

// Prompt carries everything SQL generation may draw on. Model clients
// render it to text; the rule-based fallback consumes it structurally.
type Prompt struct {
	Question string
	Tables   []SchemaTable
	History  []models.HistoryTurn
	// MaxRows is the LIMIT every generated statement must respect.
	MaxRows int
	// MaxHistoryTurns bounds how many trailing history turns are rendered.
	MaxHistoryTurns int
}

// Render produces the model-facing prompt text: a compact schema listing,
// recent history, and the generation rules.
func (p *Prompt) Render() string {
	var b strings.Builder

	b.WriteString("You translate analytical questions into a single SQL SELECT statement.\n\n")

	b.WriteString("Available tables:\n")
	for _, table := range p.Tables {
		cols := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			cols[i] = col.Name + " " + col.DataType
		}
		fmt.Fprintf(&b, "- %s(%s)\n", table.Alias, strings.Join(cols, ", "))
	}

	if turns := p.recentHistory(); len(turns) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range turns {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	names := make([]string, len(p.Tables))
	for i, table := range p.Tables {
		names[i] = table.Alias
	}

	b.WriteString("\nRules:\n")
	b.WriteString("1. Read-only: a single SELECT (or WITH...SELECT) statement, nothing else.\n")
	fmt.Fprintf(&b, "2. Always include LIMIT %d or lower.\n", p.MaxRows)
	fmt.Fprintf(&b, "3. Only these tables may be referenced: %s.\n", strings.Join(names, ", "))
	b.WriteString("4. Respond with the SQL statement only, no explanation, no markdown.\n")

	fmt.Fprintf(&b, "\nQuestion: %s\n", p.Question)
	return b.String()
}

// recentHistory returns at most the trailing MaxHistoryTurns turns.
func (p *Prompt) recentHistory() []models.HistoryTurn {
	limit := p.MaxHistoryTurns
	if limit <= 0 || limit > 6 {
		limit = 6
	}
	if len(p.History) <= limit {
		return p.History
	}
	return p.History[len(p.History)-limit:]
}

// FindTable returns the schema entry whose alias matches, or nil.
func (p *Prompt) FindTable(alias string) *SchemaTable {
	for i := range p.Tables {
		if strings.EqualFold(p.Tables[i].Alias, alias) {
			return &p.Tables[i]
		}
	}
	return nil
}
