package analytics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
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

func learnerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.LearnerID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
	}
	return id, ok
}

func (h *Handler) GetAccuracy(w http.ResponseWriter, r *http.Request) {
	id, ok := learnerID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.SubjectAccuracy(r.Context(), id, r.URL.Query().Get("order"))
	if err != nil {
		if errors.Is(err, ErrUnknownOrder) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "order must be 'answered' or 'accuracy'"})
			return
		}
		httpx.WriteError(w, err, "Failed to get accuracy")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": resp})
}

func (h *Handler) GetHardest(w http.ResponseWriter, r *http.Request) {
	id, ok := learnerID(w, r)
	if !ok {
		return
	}

	minSamples, err := nonNegativeParam(r.URL.Query(), "min_samples")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "min_samples must be a non-negative integer"})
		return
	}

	resp, err := h.service.HardestTopics(r.Context(), id, minSamples)
	if err != nil {
		httpx.WriteError(w, err, "Failed to get hardest topics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": resp})
}

func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	id, ok := learnerID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.SevenDayTrend(r.Context(), id, h.now())
	if err != nil {
		httpx.WriteError(w, err, "Failed to get trend")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"days": resp})
}

func (h *Handler) GetTip(w http.ResponseWriter, r *http.Request) {
	id, ok := learnerID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.StudyTip(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err, "Failed to get study tip")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := learnerID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Dashboard(r.Context(), id, h.now())
	if err != nil {
		httpx.WriteError(w, err, "Failed to get dashboard")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := learnerID(w, r)
	if !ok {
		return
	}

	afterSeq, err := nonNegativeParam(r.URL.Query(), "after_seq")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "after_seq must be a non-negative integer"})
		return
	}

	resp, err := h.service.Notifications(r.Context(), id, int64(afterSeq))
	if err != nil {
		httpx.WriteError(w, err, "Failed to get notifications")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ─────────────────────────────────────────────

var errBadParam = errors.New("not a non-negative integer")

// nonNegativeParam reads an optional integer query parameter; absent means 0.
func nonNegativeParam(query url.Values, key string) (int, error) {
	s := query.Get(key)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, errBadParam
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
