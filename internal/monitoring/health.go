// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheckFunc probes one dependency.
type HealthCheckFunc func(ctx context.Context) error

// HealthManager aggregates named health checks into one endpoint.
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheckFunc
	version string
	started time.Time
	timeout time.Duration
}

// NewHealthManager creates a health manager.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checks:  make(map[string]HealthCheckFunc),
		version: version,
		started: time.Now(),
		timeout: 5 * time.Second,
	}
}

// Register adds a named check.
func (h *HealthManager) Register(name string, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// SystemHealth is the health endpoint payload.
type SystemHealth struct {
	Status    HealthStatus      `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Check runs all registered checks with a bounded timeout each.
func (h *HealthManager) Check(ctx context.Context) SystemHealth {
	h.mu.RLock()
	checks := make(map[string]HealthCheckFunc, len(h.checks))
	for name, fn := range h.checks {
		checks[name] = fn
	}
	h.mu.RUnlock()

	health := SystemHealth{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Checks:    make(map[string]string, len(checks)),
	}

	for name, fn := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := fn(checkCtx)
		cancel()

		if err != nil {
			health.Checks[name] = err.Error()
			health.Status = HealthStatusUnhealthy
		} else {
			health.Checks[name] = "ok"
		}
	}

	return health
}

// Handler serves the health endpoint.
func (h *HealthManager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check(r.Context())

		status := http.StatusOK
		if health.Status == HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})
}
