package prompts

import (
	"fmt"
	"strings"
	"time"
)

// SQLSystemMessage is the system role for SQL generation.
const SQLSystemMessage = "You are a professional SQL programmer."

// OutputFormat tells the model where to put the SQL and the chart metadata.
const OutputFormat = "Write the SQL in a ```sql fenced block under a \"### SQL:\" heading, " +
	"then a JSON object under a \"### Metadata:\" heading with the keys " +
	"\"title\", \"x_axis\", \"y_axis\" and \"visualization_options\". "

// Turn is a prior question in the conversation and the SQL it produced.
type Turn struct {
	Question string `json:"question"`
	SQL      string `json:"SQL"`
}

// Builder assembles generation prompts. It is safe for concurrent use.
type Builder struct {
	examples string
	now      func() time.Time
}

// NewBuilder creates a Builder over the given few-shot examples.
func NewBuilder(examples []Example) *Builder {
	return &Builder{
		examples: formatExamples(examples),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for the current-date line.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	clone := *b
	clone.now = now
	return &clone
}

// Build returns the generation prompt. With two or more past turns the
// penultimate one is quoted as conversational context.
func (b *Builder) Build(question, schemaText string, past []Turn) string {
	var pastNote string
	if len(past) >= 2 {
		prev := past[len(past)-2]
		pastNote = fmt.Sprintf(
			`Note that the previous question in this conversation was: "%s" and the generated SQL was: "%s". `,
			prev.Question, prev.SQL)
	}

	var sb strings.Builder
	sb.WriteString(b.examples)
	sb.WriteString("\n\n### Schema:\n")
	sb.WriteString(schemaText)
	sb.WriteString("\n### Question:\n")
	fmt.Fprintf(&sb, "The current date is %s. ", b.now().Format("2006-01-02"))
	sb.WriteString(pastNote)
	sb.WriteString("Please generate sql and metadata for the following question, with reasoning but no explanation. ")
	sb.WriteString(OutputFormat)
	sb.WriteString("Please enable map option only for questions involving regional districts: ")
	sb.WriteString(question)
	sb.WriteString("\n### Reasoning:")
	return sb.String()
}
