package cart

import (
	"encoding/json"
	"net/http"
	"strconv"

	"campusbite/internal/auth"
	"campusbite/internal/logger"
	"campusbite/internal/models"
	"campusbite/internal/server"
	"campusbite/internal/services/catalog"
)

// Handler exposes the cart operations over HTTP
type Handler struct {
	store   *Store
	catalog *catalog.Store
	logger  *logger.Logger
}

// NewHandler creates a cart handler
func NewHandler(store *Store, catalogStore *catalog.Store, log *logger.Logger) *Handler {
	return &Handler{
		store:   store,
		catalog: catalogStore,
		logger:  log,
	}
}

// List handles GET /cart
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	lines, err := h.store.ListLines(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("cart_list_failed", "Failed to list cart", requestID, err, nil)
		server.WriteError(w, err, requestID)
		return
	}
	if lines == nil {
		lines = []models.CartLine{}
	}

	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": lines})
}

// Add handles POST /cart. Adding the same item again merges into the
// existing line rather than creating a duplicate row.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	var req models.AddLineRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		server.WriteError(w, models.ValidationError{Field: "body", Message: "invalid JSON format"}, requestID)
		return
	}
	if err := req.Validate(); err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	item, err := h.catalog.GetItem(r.Context(), req.MenuItemID)
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	quantity, err := h.store.AddLine(r.Context(), identity.UserID, item, req.Quantity)
	if err != nil {
		h.logger.Error("cart_add_failed", "Failed to add cart line", requestID, err, map[string]interface{}{
			"menu_item_id": req.MenuItemID,
		})
		server.WriteError(w, err, requestID)
		return
	}

	h.logger.Debug("cart_line_added", "Cart line upserted", requestID, map[string]interface{}{
		"menu_item_id": req.MenuItemID,
		"quantity":     quantity,
	})

	server.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"menu_item_id": req.MenuItemID,
		"quantity":     quantity,
	})
}

// SetQuantity handles PUT /cart/{itemID}
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	itemID, err := strconv.ParseInt(r.PathValue("itemID"), 10, 64)
	if err != nil {
		server.WriteError(w, models.ValidationError{Field: "itemID", Message: "must be an integer"}, requestID)
		return
	}

	var req models.SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.WriteError(w, models.ValidationError{Field: "body", Message: "invalid JSON format"}, requestID)
		return
	}

	if err := h.store.SetQuantity(r.Context(), identity.UserID, itemID, req.Quantity); err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	server.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"menu_item_id": itemID,
		"quantity":     req.Quantity,
	})
}

// Remove handles DELETE /cart/{itemID}. Idempotent.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	identity, _ := auth.FromContext(r.Context())

	itemID, err := strconv.ParseInt(r.PathValue("itemID"), 10, 64)
	if err != nil {
		server.WriteError(w, models.ValidationError{Field: "itemID", Message: "must be an integer"}, requestID)
		return
	}

	if err := h.store.RemoveLine(r.Context(), identity.UserID, itemID); err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
