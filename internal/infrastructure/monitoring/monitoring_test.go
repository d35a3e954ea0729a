package monitoring

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"streamgate/pkg/circuitbreaker"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_AllHealthy(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("always", time.Second, func(ctx context.Context) error { return nil })

	status := h.CheckAll(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["always"])
	assert.True(t, h.IsReady(context.Background()))
}

func TestHealthChecker_OneFailureMarksUnhealthy(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("good", time.Second, func(ctx context.Context) error { return nil })
	h.AddCheck("bad", time.Second, func(ctx context.Context) error {
		return errors.New("redis down")
	})

	status := h.CheckAll(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["good"])
	assert.Equal(t, "redis down", status.Checks["bad"])
	assert.False(t, h.IsReady(context.Background()))
}

func TestHealthChecker_TimeoutBoundsSlowChecks(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("slow", 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	status := h.CheckAll(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOutputDirCheck(t *testing.T) {
	h := NewHealthChecker()
	h.AddOutputDirCheck(filepath.Join(t.TempDir(), "hls"), time.Second)

	assert.True(t, h.IsReady(context.Background()))
}

func TestFFmpegCheck(t *testing.T) {
	h := NewHealthChecker()
	// sh is on PATH everywhere the service runs.
	h.AddFFmpegCheck("sh", time.Second)
	require.True(t, h.IsReady(context.Background()))

	missing := NewHealthChecker()
	missing.AddFFmpegCheck("no-such-transcoder-binary", time.Second)
	assert.False(t, missing.IsReady(context.Background()))
}

type fakePinger struct {
	err error
}

func (p *fakePinger) HealthCheck(ctx context.Context) error {
	return p.err
}

func TestAuditCheck(t *testing.T) {
	h := NewHealthChecker()
	h.AddAuditCheck(&fakePinger{}, time.Second)
	require.True(t, h.IsReady(context.Background()))

	broken := NewHealthChecker()
	broken.AddAuditCheck(&fakePinger{err: errors.New("connection refused")}, time.Second)

	status := broken.CheckAll(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "connection refused", status.Checks["audit"])
}

func TestDirectoryCheck(t *testing.T) {
	state := circuitbreaker.StateClosed
	h := NewHealthChecker()
	h.AddDirectoryCheck(func() circuitbreaker.State { return state }, time.Second)

	require.True(t, h.IsReady(context.Background()))

	state = circuitbreaker.StateOpen
	assert.False(t, h.IsReady(context.Background()))
}

func TestPrometheusCollector(t *testing.T) {
	c := NewPrometheusCollector()

	c.RecordSessionStarted("cam-1")
	c.RecordSessionStarted("cam-2")
	c.RecordSessionReady(2 * time.Second)
	c.RecordSessionEnded("cam-1", "stopped", time.Minute)
	c.RecordProcessCrashed("cam-2")
	c.RecordStartFailure()
	c.RecordTokenIssued()
	c.RecordTokenRejected("expired")
	c.RecordTokenRejected("expired")
	c.RecordPlaylistServed()
	c.RecordSegmentServed(2048)
	c.RecordSegmentServed(1024)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.sessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sessionsStartedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsEndedTotal.WithLabelValues("stopped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.startFailuresTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.processCrashesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tokensIssuedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.tokenRejectionsTotal.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.playlistsServedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.segmentsServedTotal))
	assert.Equal(t, 3072.0, testutil.ToFloat64(c.segmentBytesTotal))

	// Torn-down cameras leave no per-camera series behind.
	assert.Equal(t, 0, testutil.CollectAndCount(c.cameraSessionUp))
}
