// Package audit records the engine's escalation events with a dual-write
// pattern: an immediate structured log line, plus an optional Postgres sink
// for the durable trail. Audit failures never fail the request that caused
// the event.
package audit

import (
	"context"
	"log/slog"
	"time"

	pkglogger "github.com/wardenlabs/warden/pkg/logger"
)

// Service implements engine.Auditor.
type Service struct {
	repo        EventRepository
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewService creates an audit service. repo may be nil, in which case events
// go to the structured log only.
func NewService(repo EventRepository, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// LogSecurityEvent writes the event to the structured log immediately; the
// database write happens in the background so a slow sink never stalls the
// admission decision that raised the event.
func (s *Service) LogSecurityEvent(eventType, clientKey string, metadata map[string]string) {
	s.auditLogger.LogSecurityEvent(eventType, clientKey, metadata)

	if s.repo == nil {
		return
	}

	event := &SecurityEvent{
		EventType: eventType,
		ClientKey: clientKey,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.Create(ctx, event); err != nil {
			// Non-critical: the log line above is the authoritative record
			s.logger.Error("failed to persist security event",
				slog.String("event_type", eventType),
				slog.Any("error", err),
			)
		}
	}()
}
