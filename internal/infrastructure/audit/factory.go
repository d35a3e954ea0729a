package audit

import (
	"context"

	"streamgate/internal/core/ports"
	"streamgate/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory selects the audit sink from configuration with fallback
// support: Redis when configured and reachable, the log sink otherwise.
type Factory struct {
	sink   ports.AuditSink
	client *redis.Client
	logger *zap.SugaredLogger
}

// NewFactory creates the configured audit sink. A Redis backend that
// cannot be reached degrades to the log sink instead of failing
// startup.
func NewFactory(cfg *config.Config, logger *zap.SugaredLogger) *Factory {
	f := &Factory{logger: logger}

	if cfg.Audit.Backend == "redis" {
		client, err := NewRedisClient(
			cfg.Audit.Redis.Address,
			cfg.Audit.Redis.Password,
			cfg.Audit.Redis.DB,
			cfg.Audit.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to log audit sink",
				"error", err,
			)
		} else {
			f.client = client
			f.sink = NewRedisSink(
				client,
				cfg.Audit.Channel,
				cfg.Audit.List,
				cfg.Audit.ListMax,
				cfg.Audit.BatchSize,
				cfg.Audit.FlushInterval,
				logger,
			)
			logger.Info("using Redis audit sink")
		}
	}

	if f.sink == nil {
		f.sink = NewLogSink(logger)
		logger.Info("using log audit sink")
	}

	return f
}

// Sink returns the selected audit sink.
func (f *Factory) Sink() ports.AuditSink {
	return f.sink
}

// HealthCheck reports the health of the Redis backend. The log sink is
// always healthy.
func (f *Factory) HealthCheck(ctx context.Context) error {
	if f.client != nil {
		return f.client.Ping(ctx).Err()
	}
	return nil
}

// Close flushes and closes the sink.
func (f *Factory) Close() error {
	return f.sink.Close()
}
