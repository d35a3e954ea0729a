package domain

import (
	"time"
)

type AuditEventType string

const (
	EventSessionStarted     AuditEventType = "session.started"
	EventSessionReady       AuditEventType = "session.ready"
	EventSessionStopped     AuditEventType = "session.stopped"
	EventSessionEvicted     AuditEventType = "session.evicted"
	EventSessionExpired     AuditEventType = "session.expired"
	EventSessionStartFailed AuditEventType = "session.start_failed"
	EventProcessCrashed     AuditEventType = "process.crashed"
)

type AuditEvent struct {
	ID        string            `json:"id"`
	Type      AuditEventType    `json:"type"`
	CameraID  CameraID          `json:"camera_id,omitempty"`
	CompanyID CompanyID         `json:"company_id,omitempty"`
	SessionID SessionID         `json:"session_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Detail    map[string]string `json:"detail,omitempty"`
}
