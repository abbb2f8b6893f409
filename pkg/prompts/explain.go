package prompts

// Explanation prompt settings.
const (
	ExplainSystemMessage = "You are a helpful assistant that explains SQL queries in simple terms."
	FallbackExplanation  = "This query retrieves and analyzes your data."
)

// ExplainSQL asks for a one-line, first-person summary of a report's SQL.
func ExplainSQL(sql string) string {
	return "Please provide an extremely succinct explanation of this report you created. Start with \"I've...\":\n\n" + sql
}
