package prompts

import (
	"fmt"
	"strings"
)

// RejectionSentinel is the whole answer the pruning model gives for a
// disallowed or unrelated question.
const RejectionSentinel = "NSFW"

// PruneSchema asks the model to cut schemaText down to what question needs.
func PruneSchema(question, schemaText string) string {
	return fmt.Sprintf(`Please parse this schema to return only tables and columns relevant to the users question. Never add to the schema, only remove as necessary.
<question>%s</question>
<schema>%s</schema>
In the case that the question is NSFW or completely unrelated please return %s`, question, schemaText, RejectionSentinel)
}

// IsRejection reports whether a pruning answer is the rejection sentinel.
func IsRejection(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), RejectionSentinel)
}
