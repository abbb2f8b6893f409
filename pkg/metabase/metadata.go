package metabase

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// Field is a column in database metadata.
type Field struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	BaseType string `json:"base_type"`
}

// Table is a table in database metadata.
type Table struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Schema string  `json:"schema"`
	Fields []Field `json:"fields"`
}

// DatabaseMetadata describes the tables Metabase knows for a database.
type DatabaseMetadata struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

// GetDatabaseMetadata fetches tables and fields for dbID.
func (c *Client) GetDatabaseMetadata(ctx context.Context, dbID int) (*DatabaseMetadata, error) {
	var md DatabaseMetadata
	if err := c.doExpect(ctx, http.MethodGet, nil, &md, []int{http.StatusOK},
		"api", "database", strconv.Itoa(dbID), "metadata"); err != nil {
		return nil, fmt.Errorf("get metadata for database %d: %w", dbID, err)
	}
	return &md, nil
}
