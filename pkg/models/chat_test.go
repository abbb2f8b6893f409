package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationTurn_PreservesUnknownKeys(t *testing.T) {
	in := `{"question":"how many apps?","embed":{"card_id":12,"url":"u","SQL":"SELECT 1","x_field":["a"],"y_field":["b"]},"timestamp":"t1","loading":false}`

	var turn ConversationTurn
	require.NoError(t, json.Unmarshal([]byte(in), &turn))

	assert.Equal(t, "how many apps?", turn.Question)
	require.NotNil(t, turn.Embed)
	assert.Equal(t, 12, turn.Embed.CardID)
	assert.Equal(t, "SELECT 1", turn.Embed.SQL)
	assert.True(t, turn.HasCard())
	assert.Len(t, turn.Extra, 2)

	out, err := json.Marshal(turn)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestConversationTurn_NoEmbed(t *testing.T) {
	var turn ConversationTurn
	require.NoError(t, json.Unmarshal([]byte(`{"question":"hi","embed":null}`), &turn))

	assert.Nil(t, turn.Embed)
	assert.False(t, turn.HasCard())

	out, err := json.Marshal(turn)
	require.NoError(t, err)
	assert.JSONEq(t, `{"question":"hi"}`, string(out))
}

func TestTurnEmbed_LooseShapes(t *testing.T) {
	t.Run("failed turn", func(t *testing.T) {
		var turn ConversationTurn
		require.NoError(t, json.Unmarshal([]byte(`{"question":"q","embed":{"url":"fail","card_id":0,"x_field":"","y_field":""}}`), &turn))

		require.NotNil(t, turn.Embed)
		assert.Equal(t, "fail", turn.Embed.URL)
		assert.False(t, turn.HasCard())
		assert.Equal(t, []string{}, turn.Embed.XField)
		assert.Equal(t, []string{}, turn.Embed.YField)

		out, err := json.Marshal(turn)
		require.NoError(t, err)
		assert.JSONEq(t, `{"question":"q","embed":{"url":"fail","card_id":0,"SQL":"","x_field":[],"y_field":[]}}`, string(out))
	})

	t.Run("string card id and scalar fields", func(t *testing.T) {
		var embed TurnEmbed
		require.NoError(t, json.Unmarshal([]byte(`{"card_id":"12","x_field":"region","y_field":[2024],"current_visualization":"bar"}`), &embed))

		assert.Equal(t, 12, embed.CardID)
		assert.Equal(t, []string{"region"}, embed.XField)
		assert.Equal(t, []string{"2024"}, embed.YField)
		assert.Equal(t, "bar", embed.CurrentVisualization)
	})

	t.Run("object field is rejected", func(t *testing.T) {
		var embed TurnEmbed
		assert.Error(t, json.Unmarshal([]byte(`{"x_field":{"a":1}}`), &embed))
	})
}
