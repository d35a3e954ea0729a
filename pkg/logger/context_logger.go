package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	traceIDKey   contextKey = "trace_id"
	cameraIDKey  contextKey = "camera_id"
)

// WithRequestID stamps the correlation ID that ties together every log
// line written while serving one request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithTraceID carries the trace ID of the active span so log lines can
// be joined with traces.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// WithCameraID records which camera the request concerns.
func WithCameraID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cameraIDKey, id)
}

// RequestID returns the correlation ID carried by ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextLogger enriches log lines with the correlation fields a
// request context carries.
type ContextLogger struct {
	base *zap.SugaredLogger
}

func NewContextLogger(base *zap.SugaredLogger) *ContextLogger {
	return &ContextLogger{base: base}
}

// WithContext returns the base logger extended with every correlation
// field present in ctx.
func (cl *ContextLogger) WithContext(ctx context.Context) *zap.SugaredLogger {
	kv := make([]interface{}, 0, 6)
	if id, _ := ctx.Value(requestIDKey).(string); id != "" {
		kv = append(kv, "request_id", id)
	}
	if id, _ := ctx.Value(traceIDKey).(string); id != "" {
		kv = append(kv, "trace_id", id)
	}
	if id, _ := ctx.Value(cameraIDKey).(string); id != "" {
		kv = append(kv, "camera_id", id)
	}
	if len(kv) == 0 {
		return cl.base
	}
	return cl.base.With(kv...)
}

// LogRequest writes the access log line for one completed request.
func (cl *ContextLogger) LogRequest(ctx context.Context, method, path string, status int, durationMs int64) {
	cl.WithContext(ctx).Infow("http request",
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", durationMs,
	)
}
