package services

import (
	"context"
	"sync"
	"time"

	"streamgate/internal/core/ports"

	"go.uber.org/zap"
)

// Reaper periodically sweeps the session table for sessions whose idle
// deadline has passed. The sweep itself lives on the manager, so tests
// drive EvictIdleBefore directly without waiting on the ticker.
type Reaper struct {
	manager  ports.SessionManager
	clock    Clock
	interval time.Duration
	log      *zap.SugaredLogger

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewReaper creates the reaper and starts its sweep loop.
func NewReaper(manager ports.SessionManager, clock Clock, interval time.Duration, log *zap.SugaredLogger) *Reaper {
	r := &Reaper{
		manager:  manager,
		clock:    clock,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	go r.run()

	return r
}

func (r *Reaper) run() {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(context.Background())
		case <-r.stopChan:
			return
		}
	}
}

// Sweep runs one reclamation pass.
func (r *Reaper) Sweep(ctx context.Context) int {
	reclaimed := r.manager.EvictIdleBefore(ctx, r.clock.Now())
	if reclaimed > 0 {
		r.log.Infow("idle sweep reclaimed sessions", "count", reclaimed)
	}
	return reclaimed
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	<-r.doneChan
}
