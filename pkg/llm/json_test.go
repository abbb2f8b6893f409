package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"title": "x"}`, `{"title": "x"}`},
		{"surrounding text", "Here:\n{\"a\": [1, 2]}\nDone.", `{"a": [1, 2]}`},
		{"nested", `{"a": {"b": {}}}`, `{"a": {"b": {}}}`},
		{"braces in strings", `{"t": "a } b {"}`, `{"t": "a } b {"}`},
		{"think tags", "<think>{not json}</think>\n{\"ok\": true}", `{"ok": true}`},
		{"skips invalid object", `{oops} then {"ok": 1}`, `{"ok": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractObject_NotFound(t *testing.T) {
	for _, input := range []string{"", "no json here", `{"unterminated": 1`} {
		_, err := ExtractObject(input)
		assert.Error(t, err, input)
	}
}

func TestFirstObject(t *testing.T) {
	obj, ok := FirstObject(`noise {"a": {"b": "}"}} {"c": 1}`)
	assert.True(t, ok)
	assert.Equal(t, `{"a": {"b": "}"}}`, obj)

	obj, ok = FirstObject(`{"a": 1,} {"b": 2}`)
	assert.True(t, ok)
	assert.Equal(t, `{"a": 1,}`, obj)

	_, ok = FirstObject(`{"unterminated": 1`)
	assert.False(t, ok)
}
