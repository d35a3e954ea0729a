package ports

import (
	"context"

	"streamgate/internal/core/domain"
)

// CameraDirectory resolves a camera to its RTSP source. Lookups are
// tenant-scoped; a camera belonging to another company is not found.
type CameraDirectory interface {
	Lookup(ctx context.Context, cameraID domain.CameraID, companyID domain.CompanyID) (*domain.Camera, error)
}

// AuditSink records session lifecycle and access-control events for the
// platform's incident timeline.
type AuditSink interface {
	Record(ctx context.Context, event *domain.AuditEvent) error
	Close() error
}
