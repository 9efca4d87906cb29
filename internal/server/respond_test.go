package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"campusbite/internal/models"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{models.ErrEmptyCart, http.StatusBadRequest},
		{models.ErrNoValidItems, http.StatusBadRequest},
		{fmt.Errorf("%w: too soon", models.ErrInvalidRequiredTime), http.StatusBadRequest},
		{models.ValidationError{Field: "quantity", Message: "must be positive"}, http.StatusBadRequest},
		{models.ErrPaymentVerificationFailed, http.StatusPaymentRequired},
		{models.ErrPermissionDenied, http.StatusForbidden},
		{fmt.Errorf("%w: order ORD_1", models.ErrNotFound), http.StatusNotFound},
		{models.ErrInvalidTransition, http.StatusConflict},
		{models.ErrPaymentNotCollected, http.StatusConflict},
		{models.ErrDuplicateRequest, http.StatusConflict},
		{models.ErrUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("surprise"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, tt.err, "req_test")
		if rec.Code != tt.code {
			t.Errorf("WriteError(%v): status %d, want %d", tt.err, rec.Code, tt.code)
		}
		if got := rec.Header().Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
	}
}
