package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckValueForInjection(t *testing.T) {
	assert.NoError(t, CheckValueForInjection("unit_name", "某某大厦"))
	assert.NoError(t, CheckValueForInjection("month", "2024-03"))
	assert.NoError(t, CheckValueForInjection("count", 42))
	assert.NoError(t, CheckValueForInjection("flag", true))

	assert.Error(t, CheckValueForInjection("search", "' OR 1=1 --"))
	assert.Error(t, CheckValueForInjection("search", "'; DROP TABLE users--"))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", QuoteLiteral("plain"))
	assert.Equal(t, "'it''s'", QuoteLiteral("it's"))
	assert.Equal(t, "''", QuoteLiteral(""))
}
