package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// readyTimeout bounds all dependency checks of one /ready request.
const readyTimeout = 5 * time.Second

// HealthChecker is a dependency /ready reports on.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandlersConfig lists the dependencies /ready checks. A nil checker
// means the dependency is not configured (in-process fallbacks are in use).
type HealthHandlersConfig struct {
	DBChecker      HealthChecker
	RedisChecker   HealthChecker
	MetricsEnabled bool
}

// HealthHandlers serves /health (liveness) and /ready (readiness).
type HealthHandlers struct {
	cfg HealthHandlersConfig
}

func NewHealthHandlers(cfg HealthHandlersConfig) *HealthHandlers {
	return &HealthHandlers{cfg: cfg}
}

// HealthResponse is the body of both endpoints. Checks maps a dependency to
// "ok", "error" or "not_configured".
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health answers 200 while the process can serve requests at all.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	writeJSON(w, r, http.StatusOK, newHealthResponse(true, map[string]string{"runtime": "ok"}))
}

// Ready answers 503 when a configured dependency fails its check.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string, 3)
	dbOK := runCheck(ctx, checks, "database", h.cfg.DBChecker)
	redisOK := runCheck(ctx, checks, "redis", h.cfg.RedisChecker)
	if h.cfg.MetricsEnabled {
		checks["metrics"] = "ok"
	}

	ready := dbOK && redisOK
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, newHealthResponse(ready, checks))
}

func newHealthResponse(healthy bool, checks map[string]string) HealthResponse {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// runCheck records the outcome of checker under name and reports whether
// it passed. An unconfigured dependency passes.
func runCheck(ctx context.Context, checks map[string]string, name string, checker HealthChecker) bool {
	if checker == nil {
		checks[name] = "not_configured"
		return true
	}
	if err := checker.HealthCheck(ctx); err != nil {
		checks[name] = "error"
		slog.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
		return false
	}
	checks[name] = "ok"
	return true
}
