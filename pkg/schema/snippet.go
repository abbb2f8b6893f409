// Package schema turns BI database metadata into embeddable table
// descriptions and retrieves the ones relevant to a question.
package schema

import "strings"

// Schema categories. Public tables live in the "public" schema; custom
// worksheet tables live in "Reporting".
const (
	CategoryPublic = "public"
	CategoryCustom = "custom"
)

// Snippet is the text description of one table.
type Snippet struct {
	Content  string
	DBID     int
	Category string
}

// Format joins snippet contents with newlines for prompt inclusion.
func Format(snippets []Snippet) string {
	parts := make([]string, len(snippets))
	for i, s := range snippets {
		parts[i] = s.Content
	}
	return strings.Join(parts, "\n")
}
