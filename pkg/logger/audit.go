package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditLogger writes security audit events as structured log lines. It is
// the default escalation sink for the admission engine; the dual-write
// database sink in internal/audit wraps it.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogSecurityEvent records an engine escalation (suspicious mark, block,
// lockout, session invalidation).
func (al *AuditLogger) LogSecurityEvent(eventType, clientKey string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_type", eventType),
		slog.String("client_key", clientKey),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
}

// LogAuthAttempt records the outcome of an authentication attempt.
func (al *AuditLogger) LogAuthAttempt(identity, ipAddress string, success bool, failureReason string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("identity", SanitizedIdentity(identity)),
		slog.Bool("success", success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}
	if failureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", failureReason))
	}

	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
