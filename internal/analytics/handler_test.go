package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patente-quiz/backend/internal/middleware"
	"github.com/patente-quiz/backend/internal/models"
)

func get(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middleware.WithLearnerID(req.Context(), "l"))
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestAnalyticsHandlers(t *testing.T) {
	f := newFixture(t)
	f.answer(t, "l", "sig", 10, 10, now)
	h := NewHandler(f.analytics)
	h.now = func() time.Time { return now }

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		target     string
		wantStatus int
	}{
		{"accuracy", h.GetAccuracy, "/api/v1/analytics/accuracy", http.StatusOK},
		{"accuracy by accuracy", h.GetAccuracy, "/api/v1/analytics/accuracy?order=accuracy", http.StatusOK},
		{"accuracy bad order", h.GetAccuracy, "/api/v1/analytics/accuracy?order=x", http.StatusBadRequest},
		{"hardest", h.GetHardest, "/api/v1/analytics/hardest?min_samples=3", http.StatusOK},
		{"hardest default samples", h.GetHardest, "/api/v1/analytics/hardest", http.StatusOK},
		{"hardest bad samples", h.GetHardest, "/api/v1/analytics/hardest?min_samples=lots", http.StatusBadRequest},
		{"hardest negative samples", h.GetHardest, "/api/v1/analytics/hardest?min_samples=-2", http.StatusBadRequest},
		{"trend", h.GetTrend, "/api/v1/analytics/trend", http.StatusOK},
		{"tip", h.GetTip, "/api/v1/analytics/tip", http.StatusOK},
		{"dashboard", h.GetDashboard, "/api/v1/analytics/dashboard", http.StatusOK},
		{"notifications", h.GetNotifications, "/api/v1/notifications", http.StatusOK},
		{"notifications after seq", h.GetNotifications, "/api/v1/notifications?after_seq=4", http.StatusOK},
		{"notifications bad after seq", h.GetNotifications, "/api/v1/notifications?after_seq=abc", http.StatusBadRequest},
		{"notifications negative after seq", h.GetNotifications, "/api/v1/notifications?after_seq=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, tt.handler, tt.target)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestNotificationsHandlerAfterSeq(t *testing.T) {
	f := newFixture(t)
	f.answer(t, "l", "sig", 10, 10, now)
	f.answer(t, "l", "sig", 40, 40, now.Add(-time.Second))
	h := NewHandler(f.analytics)

	rr := get(t, h.GetNotifications, "/api/v1/notifications?after_seq=10")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.NotificationsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Notifications, 3)
	assert.Equal(t, int64(10), resp.AfterSeq)
	assert.Equal(t, int64(50), resp.NextSeq)
	assert.False(t, resp.Truncated)
}

func TestHardestHandlerRejectsBadMinSamples(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.analytics)

	rr := get(t, h.GetHardest, "/api/v1/analytics/hardest?min_samples=-1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "min_samples")
}

func TestAnalyticsHandlerRequiresLearner(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.analytics)

	rr := httptest.NewRecorder()
	h.GetTrend(rr, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/trend", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
