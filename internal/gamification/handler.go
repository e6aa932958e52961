package gamification

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/patente-quiz/backend/internal/httpx"
	"github.com/patente-quiz/backend/internal/middleware"
	"github.com/patente-quiz/backend/internal/models"
)

type Handler struct {
	service *Service
	now     func() time.Time
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

// ── Submissions ─────────────────────────────────────────

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := middleware.LearnerID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.QuestionID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "question_id is required"})
		return
	}

	resp, err := h.service.ApplySubmission(r.Context(), learnerID, req.QuestionID, req.Choice, h.now())
	if err != nil {
		httpx.WriteError(w, err, "Failed to record answer")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Progress ────────────────────────────────────────────

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := middleware.LearnerID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.Progress(r.Context(), learnerID)
	if err != nil {
		httpx.WriteError(w, err, "Failed to get progress")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ArchiveProgress soft-archives the caller's record. History stays readable.
func (h *Handler) ArchiveProgress(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := middleware.LearnerID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	if err := h.service.ArchiveLearner(r.Context(), learnerID, h.now()); err != nil {
		httpx.WriteError(w, err, "Failed to archive progress")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

// ── Helpers ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
