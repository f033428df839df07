package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"wellmind/internal/model"
	"wellmind/internal/service"
)

// OutcomeHandler handles intervention outcome endpoints
type OutcomeHandler struct {
	outcomeSvc *service.OutcomeService
}

// NewOutcomeHandler creates a new outcome handler
func NewOutcomeHandler(outcomeSvc *service.OutcomeService) *OutcomeHandler {
	return &OutcomeHandler{outcomeSvc: outcomeSvc}
}

// StartOutcomeRequest is the request body for starting or simulating an outcome
type StartOutcomeRequest struct {
	UserID         string            `json:"userId"`
	InterventionID string            `json:"interventionId"`
	PreScores      model.ScoreVector `json:"preScores"`
	Weeks          int               `json:"weeks,omitempty"`
}

func (req StartOutcomeRequest) validate() string {
	if req.UserID == "" || req.InterventionID == "" {
		return "userId and interventionId are required"
	}
	if !req.PreScores.Valid() {
		return "preScores must be within [0,1]"
	}
	return ""
}

// Start handles POST /v1/outcomes
func (h *OutcomeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	o, err := h.outcomeSvc.Start(r.Context(), req.UserID, req.InterventionID, req.PreScores)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, o)
}

// Simulate handles POST /v1/outcomes/simulate
func (h *OutcomeHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req StartOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	o, err := h.outcomeSvc.Simulate(r.Context(), req.UserID, req.InterventionID, req.PreScores, req.Weeks)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, o)
}

// Get handles GET /v1/outcomes/{id}
func (h *OutcomeHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.outcomeSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// ListByUser handles GET /v1/users/{userId}/outcomes
func (h *OutcomeHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.outcomeSvc.ListByUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"outcomes": outcomes})
}

// CompleteRequest is the request body for completing an outcome.
// PostScores is omitted when completing a simulation.
type CompleteRequest struct {
	PostScores *model.ScoreVector `json:"postScores,omitempty"`
}

// Complete handles POST /v1/outcomes/{id}/complete
func (h *OutcomeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := mux.Vars(r)["id"]

	var (
		o   *model.InterventionOutcome
		err error
	)
	if req.PostScores == nil {
		o, err = h.outcomeSvc.CompleteSimulation(r.Context(), id)
	} else {
		if !req.PostScores.Valid() {
			writeError(w, http.StatusBadRequest, "postScores must be within [0,1]")
			return
		}
		o, err = h.outcomeSvc.Complete(r.Context(), id, *req.PostScores)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// DropoutRequest is the request body for marking a dropout
type DropoutRequest struct {
	Reason string `json:"reason"`
	Week   int    `json:"week"`
}

// Dropout handles POST /v1/outcomes/{id}/dropout
func (h *OutcomeHandler) Dropout(w http.ResponseWriter, r *http.Request) {
	var req DropoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.outcomeSvc.MarkDropout(r.Context(), mux.Vars(r)["id"], req.Reason, req.Week)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// AdherenceRequest is the request body for an adherence update
type AdherenceRequest struct {
	Completed int `json:"sessionsCompleted"`
	Scheduled int `json:"sessionsScheduled"`
}

// Adherence handles POST /v1/outcomes/{id}/adherence
func (h *OutcomeHandler) Adherence(w http.ResponseWriter, r *http.Request) {
	var req AdherenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.outcomeSvc.UpdateAdherence(r.Context(), mux.Vars(r)["id"], req.Completed, req.Scheduled)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// Review handles POST /v1/outcomes/{id}/review
func (h *OutcomeHandler) Review(w http.ResponseWriter, r *http.Request) {
	o, err := h.outcomeSvc.SubmitForReview(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// Archive handles POST /v1/outcomes/{id}/archive
func (h *OutcomeHandler) Archive(w http.ResponseWriter, r *http.Request) {
	o, err := h.outcomeSvc.Archive(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// RegisterIntervention handles PUT /v1/interventions/{id}
func (h *OutcomeHandler) RegisterIntervention(w http.ResponseWriter, r *http.Request) {
	var req model.Intervention
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = mux.Vars(r)["id"]

	if err := h.outcomeSvc.RegisterIntervention(r.Context(), &req); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

// Stats handles GET /v1/interventions/stats
func (h *OutcomeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.outcomeSvc.InterventionStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"interventions": stats})
}
