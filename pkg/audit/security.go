// Package audit provides security audit logging for SIEM consumption.
// Events are logged as structured JSON so they can be filtered and alerted on.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a display setting.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventInputRejected is logged when a display setting is not a plain identifier.
	EventInputRejected SecurityEventType = "input_rejected"
)

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	TenantID  string            `json:"tenant_id"`
	UserID    string            `json:"user_id,omitempty"`
	CardID    int               `json:"card_id,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails describes a flagged input.
type InjectionDetails struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// SecurityAuditor logs security events under the "security_audit" logger name.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records a detected SQL injection attempt at ERROR level.
// The caller's identity is taken from ctx when present.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, cardID int, details InjectionDetails) {
	event := a.newEvent(ctx, EventSQLInjectionAttempt, cardID, details, "critical")
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", string(eventJSON)),
		zap.String("tenant_id", event.TenantID),
		zap.String("user_id", event.UserID),
		zap.Int("card_id", cardID),
		zap.String("field", details.Field),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", event.Severity),
	)
}

// LogInputRejected records an input dropped by validation at WARN level.
// These are usually client bugs, not attacks.
func (a *SecurityAuditor) LogInputRejected(ctx context.Context, cardID int, field, reason string) {
	event := a.newEvent(ctx, EventInputRejected, cardID, map[string]string{
		"field":  field,
		"reason": reason,
	}, "warning")
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Input rejected",
		zap.String("event_json", string(eventJSON)),
		zap.String("tenant_id", event.TenantID),
		zap.String("user_id", event.UserID),
		zap.Int("card_id", cardID),
		zap.String("field", field),
		zap.String("reason", reason),
		zap.String("severity", event.Severity),
	)
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, cardID int, details any, severity string) SecurityEvent {
	return SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		TenantID:  auth.GetTenantIDFromContext(ctx),
		UserID:    auth.GetUserIDFromContext(ctx),
		CardID:    cardID,
		Details:   details,
		Severity:  severity,
	}
}
