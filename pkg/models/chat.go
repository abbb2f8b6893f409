package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bcgov/unity-ai/pkg/jsonutil"
)

// ============================================================================
// Chat
// ============================================================================

// Chat is a saved conversation owned by one user within one tenant.
type Chat struct {
	ID           uuid.UUID          `json:"id"`
	TenantID     string             `json:"tenant_id"`
	UserID       string             `json:"user_id"`
	Title        string             `json:"title"`
	Conversation []ConversationTurn `json:"conversation"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// ChatSummary is the list view of a chat.
type ChatSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ============================================================================
// Conversation Turns
// ============================================================================

// ConversationTurn is one question and the report produced for it.
// Keys the server does not interpret are kept in Extra and written back
// unchanged, since the frontend owns the turn layout.
type ConversationTurn struct {
	Question string
	Embed    *TurnEmbed
	Extra    map[string]json.RawMessage
}

// TurnEmbed describes the saved card a turn displays.
type TurnEmbed struct {
	CardID               int      `json:"card_id"`
	URL                  string   `json:"url"`
	SQL                  string   `json:"SQL"`
	Title                string   `json:"title,omitempty"`
	XField               []string `json:"x_field"`
	YField               []string `json:"y_field"`
	VisualizationOptions []string `json:"visualization_options,omitempty"`
	CurrentVisualization string   `json:"current_visualization,omitempty"`
}

// UnmarshalJSON accepts the loose shapes the frontend stores: a failed turn
// carries "" for the field lists, and card ids may arrive as strings.
func (e *TurnEmbed) UnmarshalJSON(data []byte) error {
	type plain TurnEmbed
	var loose struct {
		plain
		CardID               jsonutil.FlexibleInt `json:"card_id"`
		XField               jsonutil.StringList  `json:"x_field"`
		YField               jsonutil.StringList  `json:"y_field"`
		VisualizationOptions jsonutil.StringList  `json:"visualization_options"`
	}
	if err := json.Unmarshal(data, &loose); err != nil {
		return err
	}

	*e = TurnEmbed(loose.plain)
	e.CardID = int(loose.CardID)
	e.XField = nonNil(loose.XField)
	e.YField = nonNil(loose.YField)
	if len(loose.VisualizationOptions) > 0 {
		e.VisualizationOptions = loose.VisualizationOptions
	}
	return nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// HasCard reports whether the turn references a card.
func (t *ConversationTurn) HasCard() bool {
	return t.Embed != nil && t.Embed.CardID != 0
}

// MarshalJSON writes the known keys over the preserved extras.
func (t ConversationTurn) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Extra)+2)
	for k, v := range t.Extra {
		out[k] = v
	}
	if t.Question != "" {
		out["question"] = t.Question
	}
	if t.Embed != nil {
		out["embed"] = t.Embed
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads question and embed and keeps the rest.
func (t *ConversationTurn) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = ConversationTurn{}
	if q, ok := raw["question"]; ok {
		if err := json.Unmarshal(q, &t.Question); err != nil {
			return err
		}
		delete(raw, "question")
	}
	if e, ok := raw["embed"]; ok {
		if string(e) != "null" {
			t.Embed = &TurnEmbed{}
			if err := json.Unmarshal(e, t.Embed); err != nil {
				return err
			}
		}
		delete(raw, "embed")
	}
	if len(raw) > 0 {
		t.Extra = raw
	}
	return nil
}
