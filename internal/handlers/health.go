package handlers

import (
	"net/http"
	"time"

	"github.com/merchforge/api/internal/platform/httpx"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	started time.Time
	ready   func() error
}

// HealthDeps configures the health handlers. Ready may be nil, in which case
// readiness always succeeds.
type HealthDeps struct {
	Ready func() error
}

// NewHealthHandlers constructs the probe handlers.
func NewHealthHandlers(deps HealthDeps) *HealthHandlers {
	return &HealthHandlers{
		started: time.Now(),
		ready:   deps.Ready,
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports whether the service can accept traffic.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("not_ready", err.Error(), http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
