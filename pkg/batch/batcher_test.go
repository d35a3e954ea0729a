package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *batchRecorder) process(ctx context.Context, items []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := make([]string, len(items))
	copy(batch, items)
	r.batches = append(r.batches, batch)
	return nil
}

func (r *batchRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func (r *batchRecorder) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestBatcher_FlushesWhenFull(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(3, time.Hour, rec.process)
	defer b.Stop()

	require.NoError(t, b.Add("a"))
	require.NoError(t, b.Add("b"))
	assert.Equal(t, 0, rec.batchCount())

	require.NoError(t, b.Add("c"))

	require.Eventually(t, func() bool {
		return rec.total() == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.batchCount())
	assert.Equal(t, 0, b.PendingCount())
}

func TestBatcher_FlushesOnInterval(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(100, 20*time.Millisecond, rec.process)
	defer b.Stop()

	require.NoError(t, b.Add("a"))

	require.Eventually(t, func() bool {
		return rec.total() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBatcher_ManualFlush(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(100, time.Hour, rec.process)
	defer b.Stop()

	require.NoError(t, b.Add("a"))
	require.NoError(t, b.Add("b"))
	require.Equal(t, 2, b.PendingCount())

	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, 2, rec.total())
	assert.Equal(t, 0, b.PendingCount())

	// Nothing left to flush.
	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, 1, rec.batchCount())
}

func TestBatcher_StopFlushesRemaining(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(100, time.Hour, rec.process)

	require.NoError(t, b.Add("a"))
	require.NoError(t, b.Add("b"))

	b.Stop()

	assert.Equal(t, 2, rec.total())

	err := b.Add("c")
	assert.ErrorIs(t, err, ErrStopped)

	// Second Stop is a no-op.
	b.Stop()
}
