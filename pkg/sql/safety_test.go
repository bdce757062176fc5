package sql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "fire_alarm_record", wantErr: false},
		{name: "leading underscore", input: "_internal", wantErr: false},
		{name: "mixed case", input: "SalesData2024", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "digit led", input: "7days", wantErr: true},
		{name: "hyphen", input: "fire-alarm", wantErr: true},
		{name: "quoted", input: `"users"`, wantErr: true},
		{name: "dotted", input: "db.users", wantErr: true},
		{name: "space", input: "fire alarm", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input, "table")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("SELECT 1;  \n")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got)

	_, err = Normalize("SELECT 1; DROP TABLE users")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	// Semicolon inside a string literal is fine.
	got, err = Normalize("SELECT * FROM t WHERE note = 'a;b'")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE note = 'a;b'", got)
}

func TestCheckReadOnly(t *testing.T) {
	safe := []string{
		"SELECT * FROM fire_alarm_record",
		"select unit_name, count(*) from fire_alarm_record group by unit_name",
		"WITH recent AS (SELECT * FROM fire_alarm_record) SELECT * FROM recent",
		"/* leading comment */ SELECT 1",
		"-- comment\nSELECT 1",
		// Forbidden words inside string literals do not trip the filter.
		"SELECT * FROM logs WHERE message = 'please DROP me a line'",
	}
	for _, q := range safe {
		assert.True(t, IsSafeReadOnly(q), "expected safe: %s", q)
	}

	unsafe := []string{
		"DELETE FROM fire_alarm_record",
		"INSERT INTO t VALUES (1)",
		"UPDATE t SET a = 1",
		"DROP TABLE t",
		"TRUNCATE t",
		"ALTER TABLE t ADD COLUMN b INT",
		"CREATE TABLE t (a INT)",
		"REPLACE INTO t VALUES (1)",
		"ATTACH 'other.db' AS other",
		"DETACH other",
		"PRAGMA table_info(t)",
		"SELECT 1; DELETE FROM t",
		"SELECT * FROM t WHERE id IN (DELETE FROM t RETURNING id)",
		"",
		"EXPLAIN SELECT 1",
	}
	for _, q := range unsafe {
		assert.False(t, IsSafeReadOnly(q), "expected unsafe: %s", q)
	}
}

func TestCheckReadOnlyNamesKeyword(t *testing.T) {
	err := CheckReadOnly("SELECT * FROM t; DROP TABLE t")
	var unsafeErr *apperrors.UnsafeStatementError
	require.ErrorAs(t, err, &unsafeErr)
	assert.Equal(t, "DROP", unsafeErr.Keyword)
}

func TestCheckReadOnlyCommentSmuggling(t *testing.T) {
	// Comments are stripped before both checks: a SELECT that only exists
	// inside a comment does not make a statement safe, and a forbidden
	// keyword that only exists inside a comment does not make it unsafe.
	assert.False(t, IsSafeReadOnly("/* SELECT */ DELETE FROM t"))
	assert.True(t, IsSafeReadOnly("SELECT 1 /* DROP */"))
}

func TestStripComments(t *testing.T) {
	got := StripComments("SELECT a, -- trailing\n b /* mid */ FROM t WHERE x = '-- not a comment'")
	assert.Contains(t, got, "'-- not a comment'")
	assert.NotContains(t, got, "trailing")
	assert.NotContains(t, got, "mid")
}
