package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/lingolink/backend/internal/logging"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler reports liveness and, when Check is set, database reachability.
type HealthHandler struct {
	Check func(ctx context.Context) error
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Check != nil {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		if err := h.Check(checkCtx); err != nil {
			logging.FromContext(ctx).Warn("health check failed", "error", err)
			respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "unreachable"})
			return
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
