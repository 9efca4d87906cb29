package notification

import (
	"encoding/json"
	"net/http"
	"strings"

	"campusbite/internal/auth"
	"campusbite/internal/logger"
	"campusbite/internal/models"
	"campusbite/internal/server"
)

// Handler exposes device-token registration over HTTP
type Handler struct {
	tokens TokenStore
	logger *logger.Logger
}

// NewHandler creates a notification handler
func NewHandler(tokens TokenStore, log *logger.Logger) *Handler {
	return &Handler{
		tokens: tokens,
		logger: log,
	}
}

type registerTokenRequest struct {
	Token string `json:"token"`
}

// RegisterToken handles POST /notifications/tokens
func (h *Handler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.WriteError(w, models.ValidationError{Field: "body", Message: "invalid JSON format"}, requestID)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		server.WriteError(w, models.ValidationError{Field: "token", Message: "token is required"}, requestID)
		return
	}

	if err := h.tokens.Register(r.Context(), identity.UserID, req.Token); err != nil {
		h.logger.Error("token_register_failed", "Failed to register push token", requestID, err, map[string]interface{}{
			"user_id": identity.UserID,
		})
		server.WriteError(w, err, requestID)
		return
	}

	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"registered": true})
}
