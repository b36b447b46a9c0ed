package handler

import (
	"net/http"
	"time"
)

// HealthHandler reports liveness.
type HealthHandler struct {
	started time.Time
}

func NewHealthHandler() *HealthHandler { return &HealthHandler{started: time.Now()} }

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ok",
		"uptime":  time.Since(h.started).Seconds(),
	})
}
