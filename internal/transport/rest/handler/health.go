package handler

import (
	"net/http"

	"wellmind/internal/service"
)

// HealthHandler handles liveness and backend health endpoints
type HealthHandler struct {
	healthSvc *service.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(healthSvc *service.HealthService) *HealthHandler {
	return &HealthHandler{healthSvc: healthSvc}
}

// Live handles GET /health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Backends handles GET /v1/backends/health. ?refresh=true probes every backend now.
func (h *HealthHandler) Backends(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "true"
	writeJSON(w, http.StatusOK, h.healthSvc.Report(r.Context(), refresh))
}
