// Package audit provides security audit logging for SIEM consumption.
// Events go to a dedicated "security_audit" logger with a JSON copy of the
// event attached, so they can be filtered out of the application log stream.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags an identifier.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventInvalidIdentifier is logged when an identifier fails validation without
	// looking like an attack.
	EventInvalidIdentifier SecurityEventType = "invalid_identifier"
	// EventCommentWrite is logged for every table or column comment written to the warehouse.
	EventCommentWrite SecurityEventType = "comment_write"
)

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	Username  string            `json:"username,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Table     string            `json:"table,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails contains specifics of a flagged identifier.
type InjectionDetails struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"`
}

// CommentWriteDetails lists what a write-back changed.
type CommentWriteDetails struct {
	Target  string   `json:"target"` // table or columns
	Columns []string `json:"columns,omitempty"`
}

// SecurityAuditor logs security events.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates an auditor logging under the "security_audit" name.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    time.Now,
	}
}

// LogRejectedTableRef records a table reference that failed validation.
// Parts that libinjection flags are logged at ERROR with critical severity;
// anything else is a plain validation failure at WARN.
func (a *SecurityAuditor) LogRejectedTableRef(ctx context.Context, ref sql.TableRef, reason error, clientIP string) {
	parts := []struct{ field, value string }{
		{"catalog", ref.Catalog},
		{"schema", ref.Schema},
		{"table", ref.Table},
	}

	flagged := false
	for _, p := range parts {
		result := sql.CheckForInjection(p.field, p.value)
		if result == nil {
			continue
		}
		flagged = true
		a.LogInjectionAttempt(ctx, InjectionDetails{
			Field:       result.Field,
			Value:       result.Value,
			Fingerprint: result.Fingerprint,
		}, clientIP)
	}
	if flagged {
		return
	}

	message := ""
	if reason != nil {
		message = reason.Error()
	}
	event := a.newEvent(ctx, EventInvalidIdentifier, "warning", clientIP)
	event.Details = map[string]string{"error": message}

	a.logger.Warn("Identifier validation failed",
		zap.String("event_json", marshal(event)),
		zap.String("error", message),
		zap.String("client_ip", clientIP),
		zap.String("username", event.Username),
		zap.String("severity", event.Severity),
	)
}

// LogInjectionAttempt records an identifier that libinjection flagged.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, details InjectionDetails, clientIP string) {
	event := a.newEvent(ctx, EventSQLInjectionAttempt, "critical", clientIP)
	event.Details = details

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", marshal(event)),
		zap.String("field", details.Field),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("username", event.Username),
		zap.String("severity", event.Severity),
	)
}

// LogCommentWrite records a successful write-back. columns is nil for a table comment.
func (a *SecurityAuditor) LogCommentWrite(ctx context.Context, ref sql.TableRef, columns []string, clientIP string) {
	details := CommentWriteDetails{Target: "table"}
	if columns != nil {
		details = CommentWriteDetails{Target: "columns", Columns: columns}
	}

	event := a.newEvent(ctx, EventCommentWrite, "info", clientIP)
	event.Table = ref.FullName()
	event.Details = details

	a.logger.Info("Comment written",
		zap.String("event_json", marshal(event)),
		zap.String("table", event.Table),
		zap.String("target", details.Target),
		zap.Int("columns", len(columns)),
		zap.String("client_ip", clientIP),
		zap.String("username", event.Username),
	)
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, severity, clientIP string) SecurityEvent {
	return SecurityEvent{
		ID:        uuid.New(),
		Timestamp: a.now().UTC(),
		EventType: eventType,
		Username:  auth.UsernameFromContext(ctx),
		ClientIP:  clientIP,
		Severity:  severity,
	}
}

// marshal ignores errors; events hold only strings and string slices.
func marshal(event SecurityEvent) string {
	b, _ := json.Marshal(event)
	return string(b)
}
