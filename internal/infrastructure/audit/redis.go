package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/pkg/batch"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSink publishes audit events to a Redis channel for live
// consumers and appends them to a capped history list that feeds the
// platform's incident timeline. Writes are batched and sent in a
// single pipeline round trip.
type RedisSink struct {
	client  *redis.Client
	channel string
	list    string
	listMax int64
	logger  *zap.SugaredLogger
	batcher *batch.Batcher[[]byte]
}

// NewRedisSink creates a Redis-backed audit sink. It takes ownership of
// the client and closes it on Close.
func NewRedisSink(
	client *redis.Client,
	channel, list string,
	listMax int64,
	batchSize int,
	flushInterval time.Duration,
	logger *zap.SugaredLogger,
) *RedisSink {
	s := &RedisSink{
		client:  client,
		channel: channel,
		list:    list,
		listMax: listMax,
		logger:  logger,
	}
	s.batcher = batch.NewBatcher(batchSize, flushInterval, s.writeBatch)
	return s
}

// Record queues the event for the next batch. The write itself is
// asynchronous; a Redis outage surfaces in the logs, not to the caller.
func (s *RedisSink) Record(ctx context.Context, event *domain.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	return s.batcher.Add(data)
}

func (s *RedisSink) writeBatch(ctx context.Context, payloads [][]byte) error {
	pipe := s.client.Pipeline()

	for _, data := range payloads {
		pipe.Publish(ctx, s.channel, data)
		pipe.LPush(ctx, s.list, data)
	}
	if s.listMax > 0 {
		pipe.LTrim(ctx, s.list, 0, s.listMax-1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warnw("failed to write audit batch",
			"events", len(payloads),
			"error", err,
		)
		return fmt.Errorf("failed to write audit batch: %w", err)
	}

	s.logger.Debugw("wrote audit batch", "events", len(payloads))
	return nil
}

// Flush immediately writes all queued events.
func (s *RedisSink) Flush(ctx context.Context) error {
	return s.batcher.Flush(ctx)
}

// Close flushes queued events and closes the Redis connection.
func (s *RedisSink) Close() error {
	s.batcher.Stop()
	return s.client.Close()
}
