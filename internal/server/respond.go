package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"campusbite/internal/models"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// WriteError maps a core error onto an HTTP status and writes it
func WriteError(w http.ResponseWriter, err error, requestID string) {
	WriteJSON(w, statusCodeFor(err), map[string]interface{}{
		"error":      err.Error(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}

// statusCodeFor translates the error taxonomy into HTTP status codes.
// Validation errors ask the caller to correct input; Unavailable is
// the only retryable class.
func statusCodeFor(err error) int {
	var vErr models.ValidationError
	switch {
	case errors.As(err, &vErr),
		errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrNoValidItems),
		errors.Is(err, models.ErrInvalidRequiredTime):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrPaymentVerificationFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrPaymentNotCollected),
		errors.Is(err, models.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
