package monitoring

import (
	"context"
	"sync"
	"time"
)

// HealthChecker runs registered dependency checks on demand. Checks are
// evaluated when asked, never in the background, so a probe always sees
// the current state.
type HealthChecker struct {
	mu     sync.RWMutex
	checks []healthCheck
}

type healthCheck struct {
	name    string
	check   func(ctx context.Context) error
	timeout time.Duration
}

// HealthStatus is the JSON body served on the health endpoints.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// AddCheck registers a named check with its own timeout.
func (h *HealthChecker) AddCheck(name string, timeout time.Duration, check func(ctx context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, healthCheck{name: name, check: check, timeout: timeout})
}

// CheckAll runs every registered check and aggregates the result.
func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make([]healthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(checks)),
	}

	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.check(checkCtx)
		cancel()

		if err != nil {
			status.Status = "unhealthy"
			status.Checks[c.name] = err.Error()
		} else {
			status.Checks[c.name] = "healthy"
		}
	}

	return status
}

// IsReady reports whether every check passes.
func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status == "healthy"
}
