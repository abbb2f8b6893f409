package metabase

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// mapRegionID is the custom GeoJSON region used for district maps.
const mapRegionID = "1c5d50ee-4389-4593-37c1-fa8d4687ff4c"

// Card is the subset of a saved question the engine reads back.
type Card struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Display      string `json:"display"`
	CollectionID *int   `json:"collection_id"`
}

// CreateCard saves sql as an embeddable table card and returns its id.
func (c *Client) CreateCard(ctx context.Context, sql string, dbID, collectionID int, name string) (int, error) {
	payload := map[string]any{
		"name":                   name,
		"visualization_settings": map[string]any{},
		"collection_id":          collectionID,
		"enable_embedding":       true,
		"dataset_query":          newNativeQuery(sql, dbID),
		"display":                "table",
	}

	var card Card
	if err := c.doExpect(ctx, http.MethodPost, payload, &card, []int{http.StatusOK}, "api", "card"); err != nil {
		return 0, fmt.Errorf("create card: %w", err)
	}

	// Metabase ignores enable_embedding on create for some versions.
	if err := c.doExpect(ctx, http.MethodPut, map[string]any{"enable_embedding": true}, nil,
		[]int{http.StatusOK}, "api", "card", strconv.Itoa(card.ID)); err != nil {
		return 0, fmt.Errorf("enable embedding for card %d: %w", card.ID, err)
	}

	c.logger.Info("Created card",
		zap.Int("card_id", card.ID),
		zap.Int("db_id", dbID),
		zap.Int("collection_id", collectionID))

	return card.ID, nil
}

// VisualizationSettings builds the settings map for a display mode.
func VisualizationSettings(display string, xFields, yFields []string) map[string]any {
	if xFields == nil {
		xFields = []string{}
	}
	if yFields == nil {
		yFields = []string{}
	}

	settings := map[string]any{
		"graph.dimensions": xFields,
		"graph.metrics":    yFields,
	}

	switch display {
	case "pie":
		metric := ""
		if len(yFields) > 0 {
			metric = yFields[0]
		}
		settings["pie.dimension"] = xFields
		settings["pie.metric"] = metric
	case "map":
		settings["map.region"] = mapRegionID
	}

	return settings
}

// UpdateCardVisualization changes a card's display mode and axis fields.
func (c *Client) UpdateCardVisualization(ctx context.Context, cardID int, display string, xFields, yFields []string) error {
	payload := map[string]any{
		"display":                display,
		"visualization_settings": VisualizationSettings(display, xFields, yFields),
	}
	if err := c.doExpect(ctx, http.MethodPut, payload, nil, []int{http.StatusOK}, "api", "card", strconv.Itoa(cardID)); err != nil {
		return fmt.Errorf("update card %d: %w", cardID, err)
	}
	return nil
}

// DeleteCard removes a card. It reports false when Metabase refused.
func (c *Client) DeleteCard(ctx context.Context, cardID int) (bool, error) {
	resp, err := c.do(ctx, http.MethodDelete, nil, "api", "card", strconv.Itoa(cardID))
	if err != nil {
		return false, fmt.Errorf("delete card %d: %w", cardID, err)
	}
	return resp.status == http.StatusOK || resp.status == http.StatusNoContent, nil
}

// ListCardIDs returns the ids of every card visible to the API key.
func (c *Client) ListCardIDs(ctx context.Context) ([]int, error) {
	var cards []Card
	if err := c.doExpect(ctx, http.MethodGet, nil, &cards, []int{http.StatusOK}, "api", "card"); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	ids := make([]int, len(cards))
	for i, card := range cards {
		ids[i] = card.ID
	}
	return ids, nil
}

// CardExists reports whether cardID is still present.
func (c *Client) CardExists(ctx context.Context, cardID int) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, nil, "api", "card", strconv.Itoa(cardID))
	if err != nil {
		return false, fmt.Errorf("get card %d: %w", cardID, err)
	}
	switch {
	case resp.status == http.StatusOK:
		return true, nil
	case resp.status == http.StatusNotFound:
		return false, nil
	default:
		return false, &HTTPError{StatusCode: resp.status, Body: string(resp.body)}
	}
}
