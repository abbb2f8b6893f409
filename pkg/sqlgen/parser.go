package sqlgen

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/bcgov/unity-ai/pkg/llm"
)

// Parser pulls SQL and metadata out of raw completion text.
type Parser interface {
	ExtractSQL(raw string) (string, bool)
	ExtractMetadata(raw string) (*Metadata, bool)
}

var (
	sqlFencePattern  = regexp.MustCompile("(?is)```sql\\s*(.+?)```")
	sqlHeaderPattern = regexp.MustCompile(`(?s)### SQL:\s*(.+?)(?:\n###|\z)`)
	metadataHeader   = regexp.MustCompile(`(?i)###\s*Metadata:\s*`)
)

// MarkdownParser reads the "### SQL:" / "### Metadata:" layout the
// generation prompt asks for.
type MarkdownParser struct{}

// ExtractSQL returns the first ```sql fenced block, or failing that the
// body of the "### SQL:" section.
func (MarkdownParser) ExtractSQL(raw string) (string, bool) {
	if m := sqlFencePattern.FindStringSubmatch(raw); m != nil {
		if sql := strings.TrimSpace(m[1]); sql != "" {
			return sql, true
		}
	}
	if m := sqlHeaderPattern.FindStringSubmatch(raw); m != nil {
		sql := strings.TrimSpace(m[1])
		return sql, sql != ""
	}
	return "", false
}

// ExtractMetadata decodes the first JSON object after "### Metadata:".
// An optional ```json fence is tolerated. Malformed or empty objects are
// reported as missing.
func (MarkdownParser) ExtractMetadata(raw string) (*Metadata, bool) {
	loc := metadataHeader.FindStringIndex(raw)
	if loc == nil {
		return nil, false
	}

	obj, ok := llm.FirstObject(raw[loc[1]:])
	if !ok {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil || len(fields) == 0 {
		return nil, false
	}

	var md rawMetadata
	if err := json.Unmarshal([]byte(obj), &md); err != nil {
		return nil, false
	}
	return md.normalize(), true
}

var _ Parser = MarkdownParser{}
