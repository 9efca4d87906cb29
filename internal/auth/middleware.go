package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"campusbite/internal/logger"
)

// Middleware authenticates requests with identity-provider bearer tokens
type Middleware struct {
	secret []byte
	logger *logger.Logger
}

// NewMiddleware creates the authentication middleware
func NewMiddleware(secret string, log *logger.Logger) *Middleware {
	return &Middleware{
		secret: []byte(secret),
		logger: log,
	}
}

// Authenticate extracts and validates the bearer token, attaching the
// caller's identity to the request context
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := ParseToken(strings.TrimPrefix(header, "Bearer "), m.secret)
		if err != nil {
			m.logger.Debug("auth_failed", "Rejected bearer token", "", map[string]interface{}{
				"remote_addr": r.RemoteAddr,
			})
			writeAuthError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}

		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

// RequireStaff rejects callers without the staff role
func (m *Middleware) RequireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := FromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		if !identity.IsStaff() {
			writeAuthError(w, http.StatusForbidden, "staff role required")
			return
		}
		next(w, r)
	}
}

func writeAuthError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
