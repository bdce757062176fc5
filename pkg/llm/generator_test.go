package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func allowedAlarm() map[string]struct{} {
	return map[string]struct{}{"fire_alarm_record": {}}
}

func TestGeneratorUsesModelOutputWhenSafe(t *testing.T) {
	model := &MockModel{
		GenerateSQLFunc: func(_ context.Context, _ *Prompt) (string, error) {
			return "SELECT unit_name FROM fire_alarm_record LIMIT 10", nil
		},
	}
	gen := NewGenerator(model, NewRuleBasedClient(nil), zap.NewNop())

	query, usedFallback, err := gen.Generate(context.Background(), alarmPrompt("按单位统计"), allowedAlarm())
	require.NoError(t, err)
	assert.False(t, usedFallback)
	assert.Equal(t, "SELECT unit_name FROM fire_alarm_record LIMIT 10", query)
}

func TestGeneratorFallsBackOnModelError(t *testing.T) {
	model := &MockModel{
		GenerateSQLFunc: func(_ context.Context, _ *Prompt) (string, error) {
			return "", errors.New("network down")
		},
	}
	gen := NewGenerator(model, NewRuleBasedClient(nil), zap.NewNop())

	query, usedFallback, err := gen.Generate(context.Background(), alarmPrompt("按月统计火警趋势"), allowedAlarm())
	require.NoError(t, err)
	assert.True(t, usedFallback)
	assert.Contains(t, query, "GROUP BY 月份")
}

func TestGeneratorFallsBackOnUnsafeModelOutput(t *testing.T) {
	model := &MockModel{
		GenerateSQLFunc: func(_ context.Context, _ *Prompt) (string, error) {
			return "DELETE FROM fire_alarm_record", nil
		},
	}
	gen := NewGenerator(model, NewRuleBasedClient(nil), zap.NewNop())

	query, usedFallback, err := gen.Generate(context.Background(), alarmPrompt("按月统计火警趋势"), allowedAlarm())
	require.NoError(t, err)
	assert.True(t, usedFallback)
	assert.Contains(t, query, "SELECT")
}

func TestGeneratorFallsBackOnUnauthorizedTables(t *testing.T) {
	model := &MockModel{
		GenerateSQLFunc: func(_ context.Context, _ *Prompt) (string, error) {
			return "SELECT * FROM secret_payroll LIMIT 10", nil
		},
	}
	gen := NewGenerator(model, NewRuleBasedClient(nil), zap.NewNop())

	query, usedFallback, err := gen.Generate(context.Background(), alarmPrompt("看看数据"), allowedAlarm())
	require.NoError(t, err)
	assert.True(t, usedFallback)
	assert.NotContains(t, query, "secret_payroll")
}

func TestGeneratorEnforcesLimitOnModelOutput(t *testing.T) {
	model := &MockModel{
		GenerateSQLFunc: func(_ context.Context, _ *Prompt) (string, error) {
			return "SELECT unit_name FROM fire_alarm_record", nil
		},
	}
	gen := NewGenerator(model, NewRuleBasedClient(nil), zap.NewNop())

	query, _, err := gen.Generate(context.Background(), alarmPrompt("按单位统计"), allowedAlarm())
	require.NoError(t, err)
	assert.Contains(t, query, "LIMIT 500")
}

func TestGeneratorErrorsOnlyWhenFallbackFailsToo(t *testing.T) {
	model := &MockModel{
		GenerateSQLFunc: func(_ context.Context, _ *Prompt) (string, error) {
			return "", errors.New("always down")
		},
	}
	gen := NewGenerator(model, NewRuleBasedClient(nil), zap.NewNop())

	// No tables means even the fallback has nothing to work with.
	_, usedFallback, err := gen.Generate(context.Background(),
		&Prompt{Question: "anything", MaxRows: 10}, map[string]struct{}{})
	require.Error(t, err)
	assert.True(t, usedFallback)
}

func TestExtractSQL(t *testing.T) {
	assert.Equal(t, "SELECT 1", ExtractSQL("SELECT 1"))
	assert.Equal(t, "SELECT 1", ExtractSQL("```sql\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", ExtractSQL("Here you go:\n```\nSELECT 1\n```\nEnjoy!"))
}
