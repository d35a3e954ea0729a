package batch

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Add after the batcher has been stopped.
var ErrStopped = errors.New("batcher stopped")

// Batcher accumulates items and hands them to a process function in
// batches, either when the batch fills or on the periodic flush tick.
type Batcher[T any] struct {
	size     int
	interval time.Duration
	process  func(ctx context.Context, items []T) error

	mu      sync.Mutex
	pending []T
	stopped bool

	flushChan chan struct{}
	stopChan  chan struct{}
	doneChan  chan struct{}
	stopOnce  sync.Once
}

// NewBatcher creates a batcher and starts its flush loop.
func NewBatcher[T any](size int, interval time.Duration, process func(ctx context.Context, items []T) error) *Batcher[T] {
	b := &Batcher[T]{
		size:      size,
		interval:  interval,
		process:   process,
		pending:   make([]T, 0, size),
		flushChan: make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}

	go b.run()

	return b
}

// Add queues an item for the next batch.
func (b *Batcher[T]) Add(item T) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrStopped
	}
	b.pending = append(b.pending, item)
	full := len(b.pending) >= b.size
	b.mu.Unlock()

	if full {
		select {
		case b.flushChan <- struct{}{}:
		default:
		}
	}

	return nil
}

// Flush immediately processes all pending items.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}

	items := make([]T, len(b.pending))
	copy(items, b.pending)
	b.pending = b.pending[:0]
	b.mu.Unlock()

	return b.process(ctx, items)
}

func (b *Batcher[T]) run() {
	defer close(b.doneChan)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = b.Flush(context.Background())
		case <-b.flushChan:
			_ = b.Flush(context.Background())
		case <-b.stopChan:
			// Final flush so queued items survive shutdown.
			_ = b.Flush(context.Background())
			return
		}
	}
}

// Stop flushes remaining items and stops the flush loop. It blocks
// until the final flush has completed.
func (b *Batcher[T]) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()
		close(b.stopChan)
	})
	<-b.doneChan
}

// PendingCount returns the number of items waiting for the next batch.
func (b *Batcher[T]) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
