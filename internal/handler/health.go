package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is the slice of repository.Store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers load balancer probes.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HandleHealth: GET /healthz
//
// 200 {"status":"ok"} when the database answers within two seconds,
// 503 {"status":"unavailable"} otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
