package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackType classifies a feedback entry.
type FeedbackType string

const (
	FeedbackTypeBugReport  FeedbackType = "bug_report"
	FeedbackTypeSuggestion FeedbackType = "suggestion"
	FeedbackTypeGeneral    FeedbackType = "general"
)

// FeedbackStatusOpen is the status of newly submitted feedback.
const FeedbackStatusOpen = "open"

// Feedback is a user report attached to a chat.
type Feedback struct {
	ID           uuid.UUID        `json:"id"`
	ChatID       uuid.UUID        `json:"chat_id"`
	TenantID     string           `json:"tenant_id"`
	UserID       string           `json:"user_id"`
	FeedbackType FeedbackType     `json:"feedback_type"`
	Message      string           `json:"message"`
	Context      FeedbackContext  `json:"context"`
	Metadata     FeedbackMetadata `json:"metadata"`
	Status       string           `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	// ChatTitle is filled by single-entry reads.
	ChatTitle string `json:"chat_title,omitempty"`
}

// ValidFeedbackStatuses lists the statuses an admin may set.
var ValidFeedbackStatuses = []string{FeedbackStatusOpen, "in_progress", "resolved", "closed"}

// IsValidFeedbackStatus checks if the given status is valid.
func IsValidFeedbackStatus(s string) bool {
	for _, v := range ValidFeedbackStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// FeedbackContext is the report the user was looking at, and the one before it.
type FeedbackContext struct {
	CurrentQuestion        string `json:"current_question,omitempty"`
	CurrentSQL             string `json:"current_sql,omitempty"`
	CurrentSQLExplanation  string `json:"current_sql_explanation,omitempty"`
	PreviousQuestion       string `json:"previous_question,omitempty"`
	PreviousSQL            string `json:"previous_sql,omitempty"`
	PreviousSQLExplanation string `json:"previous_sql_explanation,omitempty"`
}

// FeedbackMetadata is the client context captured with a submission.
type FeedbackMetadata struct {
	Timestamp       time.Time   `json:"timestamp"`
	FrontendVersion string      `json:"frontend_version,omitempty"`
	BrowserInfo     BrowserInfo `json:"browser_info"`
}

// BrowserInfo identifies the submitting client.
type BrowserInfo struct {
	UserAgent string `json:"user_agent,omitempty"`
	IP        string `json:"ip,omitempty"`
}
