package monitoring

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"streamgate/pkg/circuitbreaker"
)

// Pinger is implemented by backends that can verify their connection.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// AddOutputDirCheck verifies that the HLS output directory exists and
// is writable.
func (h *HealthChecker) AddOutputDirCheck(dir string, timeout time.Duration) {
	h.AddCheck("output_dir", timeout, func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("output dir not creatable: %w", err)
		}
		probe, err := os.CreateTemp(dir, ".healthcheck-*")
		if err != nil {
			return fmt.Errorf("output dir not writable: %w", err)
		}
		probe.Close()
		os.Remove(probe.Name())
		return nil
	})
}

// AddFFmpegCheck verifies that the transcoder binary is present and
// executable.
func (h *HealthChecker) AddFFmpegCheck(path string, timeout time.Duration) {
	h.AddCheck("ffmpeg", timeout, func(ctx context.Context) error {
		if _, err := exec.LookPath(path); err != nil {
			return fmt.Errorf("ffmpeg not available: %w", err)
		}
		return nil
	})
}

// AddAuditCheck verifies the audit backend connection.
func (h *HealthChecker) AddAuditCheck(backend Pinger, timeout time.Duration) {
	h.AddCheck("audit", timeout, func(ctx context.Context) error {
		return backend.HealthCheck(ctx)
	})
}

// AddDirectoryCheck reports unhealthy while the camera directory's
// circuit breaker is open.
func (h *HealthChecker) AddDirectoryCheck(state func() circuitbreaker.State, timeout time.Duration) {
	h.AddCheck("camera_directory", timeout, func(ctx context.Context) error {
		if s := state(); s == circuitbreaker.StateOpen {
			return fmt.Errorf("circuit breaker %s", s)
		}
		return nil
	})
}
