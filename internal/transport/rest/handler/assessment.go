package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"wellmind/internal/model"
	"wellmind/internal/service"
	"wellmind/internal/transport/rest/middleware"
)

// AssessmentHandler handles scoring and chat endpoints
type AssessmentHandler struct {
	assessmentSvc *service.AssessmentService
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(assessmentSvc *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentSvc: assessmentSvc}
}

// Assess handles POST /v1/assessments
func (h *AssessmentHandler) Assess(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input model.AssessmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.assessmentSvc.Assess(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// ChatRequest is the request body for a chat turn
type ChatRequest struct {
	ConversationID string   `json:"conversationId"`
	TurnID         string   `json:"turnId"`
	Text           string   `json:"text"`
	Context        []string `json:"context,omitempty"`
}

// Chat handles POST /v1/chat/messages
func (h *AssessmentHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.ConversationID == "" || req.TurnID == "" {
		writeError(w, http.StatusBadRequest, "conversationId and turnId are required")
		return
	}

	turn := model.ChatTurn{UserID: userID, ConversationID: req.ConversationID, TurnID: req.TurnID}
	result, err := h.assessmentSvc.AnalyzeChat(r.Context(), turn, model.ChatMessage{Text: req.Text, Context: req.Context})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// History handles GET /v1/users/{userId}/history
func (h *AssessmentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	limit := int64(50)
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}

	records, transitions, err := h.assessmentSvc.History(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	state, err := h.assessmentSvc.CurrentCluster(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rank, err := h.assessmentSvc.RiskRank(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if records == nil {
		records = []*model.PredictionRecord{}
	}
	if transitions == nil {
		transitions = []*model.ClusterTransition{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cluster":     state,
		"riskRank":    rank,
		"predictions": records,
		"transitions": transitions,
	})
}

// AtRisk handles GET /v1/users/at-risk
func (h *AssessmentHandler) AtRisk(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.assessmentSvc.AtRisk(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": entries})
}
