package ports

import (
	"time"

	"streamgate/internal/core/domain"
)

// MetricsCollector is the slice of the monitoring surface the core
// services report into. The full collector lives in
// internal/infrastructure/monitoring.
type MetricsCollector interface {
	RecordSessionStarted(cameraID domain.CameraID)
	RecordSessionReady(startupWait time.Duration)
	RecordSessionEnded(cameraID domain.CameraID, reason string, lifetime time.Duration)
	RecordStartFailure()
	RecordProcessCrashed(cameraID domain.CameraID)
}

// StreamingMetrics is the slice the HTTP handlers report into.
type StreamingMetrics interface {
	RecordTokenIssued()
	RecordTokenRejected(reason string)
	RecordPlaylistServed()
	RecordSegmentServed(bytes int64)
}
