package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/internal/core/services"
	httphandlers "streamgate/internal/handlers/http"
	"streamgate/internal/infrastructure/audit"
	"streamgate/internal/infrastructure/cameras"
	"streamgate/internal/infrastructure/monitoring"
	"streamgate/internal/infrastructure/reliability"
	"streamgate/internal/infrastructure/transcode"
	"streamgate/pkg/circuitbreaker"
	"streamgate/pkg/config"
	"streamgate/pkg/logger"
	"streamgate/pkg/retry"
	"streamgate/pkg/tracing"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := os.Getenv("STREAMGATE_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamgate: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format == "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamgate: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerEndpoint,
		Environment: "production",
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	auditFactory := audit.NewFactory(cfg, log)

	var inner ports.CameraDirectory
	switch cfg.Cameras.Provider {
	case "http":
		inner = cameras.NewHTTPDirectory(cfg.Cameras.Endpoint, cfg.Auth.ServiceKey, cfg.Cameras.RequestTimeout, log)
	default:
		inner = cameras.NewStaticDirectory(staticCameras(cfg))
	}
	wrapped := reliability.NewDirectoryWrapper(inner, retry.DefaultConfig(), circuitbreaker.DefaultConfig(), log)
	var directory ports.CameraDirectory = wrapped
	if cfg.Cameras.CacheTTL > 0 {
		directory = cameras.NewCachedDirectory(wrapped, cfg.Cameras.CacheTTL)
	}

	transcoder := transcode.NewFFmpeg(transcode.Config{
		FFmpegPath:     cfg.Transcode.FFmpegPath,
		SegmentSeconds: cfg.Streams.SegmentSeconds,
		PlaylistLength: cfg.Streams.PlaylistLength,
	}, log)

	collector := monitoring.NewPrometheusCollector()
	clock := services.NewSystemClock()

	manager := services.NewSessionManager(services.SessionConfig{
		OutputDir:           cfg.Streams.OutputDir,
		IdleTimeout:         cfg.Streams.IdleTimeout,
		StartupWait:         cfg.Streams.StartupWait,
		StartupPollInterval: cfg.Streams.StartupPollInterval,
		EvictionGrace:       cfg.Streams.EvictionGrace,
		MaxProcesses:        cfg.Streams.MaxProcesses,
		DefaultTransport:    domain.Transport(cfg.Transcode.Transport),
		DefaultMode:         domain.TranscodeMode(cfg.Transcode.Mode),
		Preset:              cfg.Transcode.Preset,
	}, directory, transcoder, auditFactory.Sink(), collector, clock, log)

	reaper := services.NewReaper(manager, clock, cfg.Streams.SweepInterval, log)

	tokens := services.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL, clock)

	health := monitoring.NewHealthChecker()
	health.AddOutputDirCheck(cfg.Streams.OutputDir, 2*time.Second)
	health.AddFFmpegCheck(cfg.Transcode.FFmpegPath, 2*time.Second)
	health.AddAuditCheck(auditFactory, 2*time.Second)
	health.AddDirectoryCheck(wrapped.BreakerState, time.Second)

	streamHandler := httphandlers.NewStreamHandler(manager, tokens, collector, cfg.Streams.OutputDir, cfg.Auth.TokenTTL, log)
	adminHandler := httphandlers.NewAdminHandler(manager, tokens, collector, cfg.Server.PublicBaseURL, log)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httphandlers.NewRouter(cfg, streamHandler, adminHandler, health, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting streamgate server",
			"address", cfg.Server.Address,
			"public_base_url", cfg.Server.PublicBaseURL,
			"output_dir", cfg.Streams.OutputDir,
			"max_processes", cfg.Streams.MaxProcesses)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server shutdown failed", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("server close failed", "error", closeErr)
		}
	}

	// Sessions go down after the listener so in-flight requests finish;
	// the audit sink closes last so their final events flush.
	reaper.Stop()
	manager.Shutdown(shutdownCtx)

	if err := auditFactory.Close(); err != nil {
		log.Errorw("audit sink close failed", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("tracing shutdown failed", "error", err)
	}

	log.Info("streamgate stopped")
}

func staticCameras(cfg *config.Config) []domain.Camera {
	out := make([]domain.Camera, 0, len(cfg.Cameras.Static))
	for _, c := range cfg.Cameras.Static {
		out = append(out, domain.Camera{
			ID:        domain.CameraID(c.ID),
			CompanyID: domain.CompanyID(c.CompanyID),
			Name:      c.Name,
			RTSPURL:   c.RTSPURL,
			Transport: domain.Transport(c.Transport),
			Username:  c.Username,
			Password:  c.Password,
		})
	}
	return out
}
