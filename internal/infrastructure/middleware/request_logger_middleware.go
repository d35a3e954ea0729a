package middleware

import (
	"time"

	"streamgate/pkg/logger"
	"streamgate/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestLoggerMiddleware assigns each request a correlation ID and
// writes one access log line after the handler chain finishes. Mounted
// after tracing so the line carries the trace ID. Probe and scrape
// endpoints are not logged.
func RequestLoggerMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	cl := logger.NewContextLogger(log)
	return func(c *gin.Context) {
		route := c.FullPath()
		switch route {
		case "/health", "/ready", "/metrics":
			c.Next()
			return
		}
		if route == "" {
			route = c.Request.URL.Path
		}

		start := time.Now()
		requestID := utils.GenerateRequestID()

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
			ctx = logger.WithTraceID(ctx, sc.TraceID().String())
		}
		if cameraID := c.Param("camera_id"); cameraID != "" {
			ctx = logger.WithCameraID(ctx, cameraID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)

		c.Next()

		cl.LogRequest(ctx, c.Request.Method, route, c.Writer.Status(), time.Since(start).Milliseconds())
	}
}
