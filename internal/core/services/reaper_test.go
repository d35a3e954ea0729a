package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamgate/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestReaper_SweepsIdleSessions(t *testing.T) {
	env := newManagerEnv(t, nil)
	reaper := NewReaper(env.manager, env.clock, 10*time.Millisecond, zaptest.NewLogger(t).Sugar())
	defer reaper.Stop()

	_, err := env.manager.GetOrCreate(context.Background(), "cam-1", "acme")
	require.NoError(t, err)

	env.clock.Advance(2 * time.Minute)

	require.Eventually(t, func() bool {
		_, err := env.manager.Session("cam-1")
		return errors.Is(err, domain.ErrSessionNotFound)
	}, time.Second, 5*time.Millisecond)
}

func TestReaper_SweepDirect(t *testing.T) {
	env := newManagerEnv(t, nil)
	reaper := NewReaper(env.manager, env.clock, time.Hour, zaptest.NewLogger(t).Sugar())
	defer reaper.Stop()

	ctx := context.Background()
	_, err := env.manager.GetOrCreate(ctx, "cam-1", "acme")
	require.NoError(t, err)
	_, err = env.manager.GetOrCreate(ctx, "cam-2", "acme")
	require.NoError(t, err)

	assert.Equal(t, 0, reaper.Sweep(ctx))

	env.clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, reaper.Sweep(ctx))
	assert.Empty(t, env.manager.Sessions())
}

func TestReaper_StopIsIdempotent(t *testing.T) {
	env := newManagerEnv(t, nil)
	reaper := NewReaper(env.manager, env.clock, time.Hour, zaptest.NewLogger(t).Sugar())

	reaper.Stop()
	reaper.Stop()
}
