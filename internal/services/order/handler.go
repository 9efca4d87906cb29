package order

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"campusbite/internal/auth"
	"campusbite/internal/logger"
	"campusbite/internal/models"
	"campusbite/internal/server"
)

// Handler exposes checkout and order lifecycle operations over HTTP
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates an order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// Checkout handles POST /checkout. An optional Idempotency-Key header
// protects against double-submits.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	var req models.CheckoutRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		server.WriteError(w, models.ValidationError{Field: "body", Message: "invalid JSON format"}, requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	customer := Customer{
		UserID: identity.UserID,
		Name:   identity.Name,
		Email:  identity.Email,
	}

	response, err := h.service.PlaceOrder(ctx, customer, &req, r.Header.Get("Idempotency-Key"), requestID)
	if err != nil {
		h.logger.Error("checkout_failed", "Failed to place order", requestID, err, map[string]interface{}{
			"user_id": identity.UserID,
		})
		server.WriteError(w, err, requestID)
		return
	}

	server.WriteJSON(w, http.StatusCreated, response)
}

// ListMine handles GET /orders
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	orders, err := h.service.ListMyOrders(r.Context(), identity.UserID)
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// ListAll handles GET /orders/all (staff dashboard)
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	orders, err := h.service.ListAllOrders(r.Context())
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// Get handles GET /orders/{number}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	order, err := h.service.GetOrder(r.Context(), r.PathValue("number"), identity.UserID, identity.IsStaff())
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	server.WriteJSON(w, http.StatusOK, order)
}

// History handles GET /orders/{number}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	history, err := h.service.History(r.Context(), r.PathValue("number"), identity.UserID, identity.IsStaff())
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles POST /orders/{number}/status (staff only)
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.WriteError(w, models.ValidationError{Field: "body", Message: "invalid JSON format"}, requestID)
		return
	}

	target, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		server.WriteError(w, models.ValidationError{Field: "status", Message: err.Error()}, requestID)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), r.PathValue("number"), target, identity.Email, requestID)
	if err != nil {
		h.logger.Error("status_update_failed", "Failed to update order status", requestID, err, map[string]interface{}{
			"order_number": r.PathValue("number"),
			"target":       req.Status,
		})
		server.WriteError(w, err, requestID)
		return
	}

	server.WriteJSON(w, http.StatusOK, order)
}

// ConfirmCash handles POST /orders/{number}/confirm-cash (staff only).
// Confirms the cash handoff and completes the order.
func (h *Handler) ConfirmCash(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	order, err := h.service.ConfirmCashCollected(r.Context(), r.PathValue("number"), identity.Email, requestID)
	if err != nil {
		h.logger.Error("cash_confirm_failed", "Failed to confirm cash collection", requestID, err, map[string]interface{}{
			"order_number": r.PathValue("number"),
		})
		server.WriteError(w, err, requestID)
		return
	}

	server.WriteJSON(w, http.StatusOK, order)
}
