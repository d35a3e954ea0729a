package monitoring

import (
	"time"

	"streamgate/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Session lifecycle
	sessionsActive       prometheus.Gauge
	sessionsStartedTotal prometheus.Counter
	sessionsEndedTotal   *prometheus.CounterVec
	startFailuresTotal   prometheus.Counter
	processCrashesTotal  prometheus.Counter

	// Histograms
	startupWait     prometheus.Histogram
	sessionLifetime prometheus.Histogram

	// Delivery
	tokensIssuedTotal    prometheus.Counter
	tokenRejectionsTotal *prometheus.CounterVec
	playlistsServedTotal prometheus.Counter
	segmentsServedTotal  prometheus.Counter
	segmentBytesTotal    prometheus.Counter

	// Per-camera state
	cameraSessionUp *prometheus.GaugeVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamgate_sessions_active",
			Help: "Number of live transcoding sessions",
		}),

		sessionsStartedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_sessions_started_total",
			Help: "Total number of transcoding sessions started",
		}),

		sessionsEndedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgate_sessions_ended_total",
			Help: "Total number of sessions ended, by reason",
		}, []string{"reason"}),

		startFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_session_start_failures_total",
			Help: "Total number of sessions that never produced a playable stream",
		}),

		processCrashesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_process_crashes_total",
			Help: "Total number of transcoder processes that exited unexpectedly",
		}),

		startupWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamgate_session_startup_wait_seconds",
			Help:    "Time from session creation to the first playable playlist",
			Buckets: []float64{0.5, 1, 2, 3, 5, 8, 12, 20},
		}),

		sessionLifetime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamgate_session_lifetime_seconds",
			Help:    "Session duration from creation to teardown",
			Buckets: prometheus.ExponentialBuckets(30, 2, 10),
		}),

		tokensIssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_tokens_issued_total",
			Help: "Total number of playback tokens issued",
		}),

		tokenRejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgate_token_rejections_total",
			Help: "Total number of rejected playback tokens, by reason",
		}, []string{"reason"}),

		playlistsServedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_playlists_served_total",
			Help: "Total number of playlist responses",
		}),

		segmentsServedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_segments_served_total",
			Help: "Total number of segment responses",
		}),

		segmentBytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_segment_bytes_total",
			Help: "Total segment bytes sent to viewers",
		}),

		cameraSessionUp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streamgate_camera_session_up",
			Help: "Whether a camera has a live session (1) or not",
		}, []string{"camera_id"}),
	}
}

func (p *PrometheusCollector) RecordSessionStarted(cameraID domain.CameraID) {
	p.sessionsActive.Inc()
	p.sessionsStartedTotal.Inc()
	p.cameraSessionUp.WithLabelValues(string(cameraID)).Set(1)
}

func (p *PrometheusCollector) RecordSessionReady(startupWait time.Duration) {
	p.startupWait.Observe(startupWait.Seconds())
}

func (p *PrometheusCollector) RecordSessionEnded(cameraID domain.CameraID, reason string, lifetime time.Duration) {
	p.sessionsActive.Dec()
	p.sessionsEndedTotal.WithLabelValues(reason).Inc()
	p.sessionLifetime.Observe(lifetime.Seconds())

	// Очищаем метрики для этой камеры
	p.cameraSessionUp.DeleteLabelValues(string(cameraID))
}

func (p *PrometheusCollector) RecordStartFailure() {
	p.startFailuresTotal.Inc()
}

func (p *PrometheusCollector) RecordProcessCrashed(cameraID domain.CameraID) {
	p.sessionsActive.Dec()
	p.processCrashesTotal.Inc()
	p.cameraSessionUp.DeleteLabelValues(string(cameraID))
}

func (p *PrometheusCollector) RecordTokenIssued() {
	p.tokensIssuedTotal.Inc()
}

func (p *PrometheusCollector) RecordTokenRejected(reason string) {
	p.tokenRejectionsTotal.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordPlaylistServed() {
	p.playlistsServedTotal.Inc()
}

func (p *PrometheusCollector) RecordSegmentServed(bytes int64) {
	p.segmentsServedTotal.Inc()
	p.segmentBytesTotal.Add(float64(bytes))
}
