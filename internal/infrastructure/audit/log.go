package audit

import (
	"context"

	"streamgate/internal/core/domain"

	"go.uber.org/zap"
)

// LogSink writes audit events to the structured log. It is the sink of
// last resort: always available, never fails.
type LogSink struct {
	logger *zap.SugaredLogger
}

// NewLogSink creates a log-backed audit sink.
func NewLogSink(logger *zap.SugaredLogger) *LogSink {
	return &LogSink{logger: logger}
}

// Record logs the event with its fields flattened into the log entry.
func (s *LogSink) Record(ctx context.Context, event *domain.AuditEvent) error {
	s.logger.Infow("audit event",
		"event_id", event.ID,
		"event_type", event.Type,
		"camera_id", event.CameraID,
		"company_id", event.CompanyID,
		"session_id", event.SessionID,
		"event_time", event.Timestamp,
		"detail", event.Detail,
	)
	return nil
}

// Close is a no-op for the log sink.
func (s *LogSink) Close() error {
	return nil
}
