package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"wellmind/internal/service"
	"wellmind/internal/transport/rest/middleware"
)

// AlertHandler handles crisis alert endpoints for professionals
type AlertHandler struct {
	crisisSvc *service.CrisisService
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(crisisSvc *service.CrisisService) *AlertHandler {
	return &AlertHandler{crisisSvc: crisisSvc}
}

// List handles GET /v1/alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := int64(100)
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}

	alerts, err := h.crisisSvc.ListOpen(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// Acknowledge handles POST /v1/alerts/{id}/ack
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	professionalID := middleware.GetProfessionalID(r.Context())
	if professionalID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	alert, err := h.crisisSvc.Acknowledge(r.Context(), mux.Vars(r)["id"], professionalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, alert)
}
