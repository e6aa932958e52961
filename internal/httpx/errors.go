package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/patente-quiz/backend/internal/models"
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidChoice):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnknownQuestion):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidQuestion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrLearnerArchived):
		return http.StatusConflict
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err with its mapped status. Server-side failures are
// logged and replaced by fallback so internals do not leak to clients.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("[http] %s: %v", fallback, err)
		msg = fallback
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
