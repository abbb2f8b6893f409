package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValueForInjection(t *testing.T) {
	tests := []struct {
		name            string
		value           string
		expectInjection bool
	}{
		{name: "column name", value: "RegionalDistrict", expectInjection: false},
		{name: "snake case alias", value: "total_approved_funding", expectInjection: false},
		{name: "title with spaces", value: "Approved Amount per Regional District", expectInjection: false},
		{name: "empty", value: "", expectInjection: false},
		{name: "classic tautology", value: "' OR '1'='1", expectInjection: true},
		{name: "stacked drop", value: "'; DROP TABLE users--", expectInjection: true},
		{name: "union select", value: "1 UNION SELECT * FROM passwords", expectInjection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckValueForInjection("x_field", tt.value)
			if !tt.expectInjection {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, "x_field", result.Field)
			assert.Equal(t, tt.value, result.Value)
			assert.NotEmpty(t, result.Fingerprint)
		})
	}
}

func TestCheckValues(t *testing.T) {
	assert.Nil(t, CheckValues("y_field", []string{"count", "sum"}))

	result := CheckValues("y_field", []string{"count", "' OR '1'='1", "admin'--"})
	require.NotNil(t, result)
	assert.Equal(t, "' OR '1'='1", result.Value)
}
