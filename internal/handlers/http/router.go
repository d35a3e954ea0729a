package http

import (
	"net/http"
	"time"

	"streamgate/internal/infrastructure/middleware"
	"streamgate/internal/infrastructure/monitoring"
	"streamgate/pkg/config"
	"streamgate/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires the three surfaces onto one engine: public playback
// (token-authorized), the internal control plane (service key) and the
// operational endpoints.
func NewRouter(
	cfg *config.Config,
	stream *StreamHandler,
	admin *AdminHandler,
	health *monitoring.HealthChecker,
	logger *zap.SugaredLogger,
) *gin.Engine {
	started := time.Now()

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.RequestLoggerMiddleware(logger))
	router.Use(middleware.RateLimitMiddleware(cfg))
	router.Use(middleware.ErrorHandlerMiddleware(logger))

	streams := router.Group("/streams/:camera_id")
	{
		streams.GET("/playlist.m3u8", stream.Playlist)
		streams.GET("/segments/:file", stream.Segment)
		streams.POST("/heartbeat", stream.Heartbeat)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.ServiceKeyMiddleware(cfg.Auth.ServiceKey))
	{
		api.POST("/grants", admin.CreateGrant)
		api.GET("/sessions", admin.ListSessions)
		api.GET("/sessions/:camera_id", admin.GetSession)
		api.DELETE("/sessions/:camera_id", admin.StopSession)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    utils.FormatDuration(time.Since(started)),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return router
}
