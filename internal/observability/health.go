package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// HealthChecker serves /healthz (liveness) and /readyz (readiness). The
// process is ready once state is restored and every registered dependency
// check passes. Emergency shutdown is reported but does not fail readiness:
// reads and claims keep working while the vault is shut.
type HealthChecker struct {
	ready     atomic.Bool
	shutdown  atomic.Bool
	startTime time.Time

	mu     sync.RWMutex
	checks map[string]Check

	checkTimeout time.Duration
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		startTime:    time.Now(),
		checks:       make(map[string]Check),
		checkTimeout: 2 * time.Second,
	}
}

// AddCheck registers a dependency probe run on every readiness request.
func (h *HealthChecker) AddCheck(name string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetShutdown mirrors the engine's emergency shutdown flag.
func (h *HealthChecker) SetShutdown(active bool) {
	h.shutdown.Store(active)
}

func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// LivenessHandler returns 200 while the process is up.
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

// ReadinessHandler returns 200 when ready and all checks pass, 503 otherwise.
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not_ready"})
		return
	}

	results, healthy := h.runChecks(r.Context())
	body := map[string]interface{}{
		"status":             "ready",
		"emergency_shutdown": h.shutdown.Load(),
		"checks":             results,
	}
	code := http.StatusOK
	if !healthy {
		body["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, body)
}

func (h *HealthChecker) runChecks(ctx context.Context) (map[string]string, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		h.mu.RLock()
		check := h.checks[name]
		h.mu.RUnlock()

		cctx, cancel := context.WithTimeout(ctx, h.checkTimeout)
		err := check(cctx)
		cancel()
		if err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}
	return results, healthy
}

func writeHealth(w http.ResponseWriter, code int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
