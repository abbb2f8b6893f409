package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAndNormalize_ValidQueries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple select", "SELECT 1", "SELECT 1"},
		{"trailing semicolon", "SELECT 1;", "SELECT 1"},
		{"semicolon and whitespace", "  SELECT 1 ;  \n", "SELECT 1"},
		{"lowercase", "select * from t", "select * from t"},
		{"cte", "WITH x AS (SELECT 1) SELECT * FROM x;", "WITH x AS (SELECT 1) SELECT * FROM x"},
		{"parenthesised", "(SELECT 1) UNION (SELECT 2)", "(SELECT 1) UNION (SELECT 2)"},
		{"semicolon in string", "SELECT 'a;b' AS v", "SELECT 'a;b' AS v"},
		{"semicolon in identifier", `SELECT "a;b" FROM t`, `SELECT "a;b" FROM t`},
		{"doubled quote escape", "SELECT 'it''s; fine'", "SELECT 'it''s; fine'"},
		{"leading line comment", "-- report\nSELECT 1", "-- report\nSELECT 1"},
		{"leading block comment", "/* report */ SELECT 1", "/* report */ SELECT 1"},
		{
			"multiline",
			"SELECT COUNT(*)\nFROM \"public\".\"Applications\"\nLIMIT 15;",
			"SELECT COUNT(*)\nFROM \"public\".\"Applications\"\nLIMIT 15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			assert.NoError(t, result.Error)
			assert.Equal(t, tt.expected, result.NormalizedSQL)
		})
	}
}

func TestValidateAndNormalize_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"empty", "", ErrEmptyQuery},
		{"whitespace", "  \n ", ErrEmptyQuery},
		{"only semicolon", ";", ErrEmptyQuery},
		{"only comment", "-- nothing here", ErrEmptyQuery},
		{"two statements", "SELECT 1; SELECT 2", ErrMultipleStatements},
		{"two statements trailing", "SELECT 1; SELECT 2;", ErrMultipleStatements},
		{"stacked drop", "SELECT 1; DROP TABLE chats", ErrMultipleStatements},
		{"delete", "DELETE FROM chats", ErrNotReadOnly},
		{"update", "UPDATE t SET a = 1", ErrNotReadOnly},
		{"drop after comment", "-- cleanup\nDROP TABLE t", ErrNotReadOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			assert.ErrorIs(t, result.Error, tt.err)
			assert.Empty(t, result.NormalizedSQL)
		})
	}
}
