package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"campusbite/internal/logger"
	"campusbite/internal/models"
	"campusbite/internal/server"
)

// Handler exposes the menu catalog over HTTP. Reads are public to any
// authenticated user; mutations are staff only, enforced by middleware
// on the route.
type Handler struct {
	store  *Store
	logger *logger.Logger
}

// NewHandler creates a catalog handler
func NewHandler(store *Store, log *logger.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: log,
	}
}

// List handles GET /menu
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	items, err := h.store.ListItems(r.Context())
	if err != nil {
		h.logger.Error("menu_list_failed", "Failed to list menu", requestID, err, nil)
		server.WriteError(w, err, requestID)
		return
	}
	if items == nil {
		items = []models.MenuItem{}
	}

	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Get handles GET /menu/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := parseItemID(r)
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	item, err := h.store.GetItem(r.Context(), id)
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	server.WriteJSON(w, http.StatusOK, item)
}

// Create handles POST /menu (staff only)
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	req, err := decodeMenuItemRequest(r)
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	item, err := h.store.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("menu_create_failed", "Failed to create menu item", requestID, err, map[string]interface{}{
			"name": req.Name,
		})
		server.WriteError(w, err, requestID)
		return
	}

	h.logger.Info("menu_item_created", "Menu item created", requestID, map[string]interface{}{
		"menu_item_id": item.ID,
		"name":         item.Name,
	})

	server.WriteJSON(w, http.StatusCreated, item)
}

// Update handles PUT /menu/{id} (staff only)
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := parseItemID(r)
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	req, err := decodeMenuItemRequest(r)
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	if err := h.store.Update(r.Context(), id, req); err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	item, err := h.store.GetItem(r.Context(), id)
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	server.WriteJSON(w, http.StatusOK, item)
}

type setAvailabilityRequest struct {
	Available bool `json:"available"`
}

// SetAvailability handles PATCH /menu/{id}/availability (staff only)
func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := parseItemID(r)
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.WriteError(w, models.ValidationError{Field: "body", Message: "invalid JSON format"}, requestID)
		return
	}

	if err := h.store.SetAvailability(r.Context(), id, req.Available); err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	server.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"menu_item_id": id,
		"available":    req.Available,
	})
}

// Delete handles DELETE /menu/{id} (staff only). Orders keep their
// frozen copies of deleted items.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := parseItemID(r)
	if err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		server.WriteError(w, err, requestID)
		return
	}

	h.logger.Info("menu_item_deleted", "Menu item deleted", requestID, map[string]interface{}{
		"menu_item_id": id,
	})

	w.WriteHeader(http.StatusNoContent)
}

func parseItemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, models.ValidationError{Field: "id", Message: "must be an integer"}
	}
	return id, nil
}

func decodeMenuItemRequest(r *http.Request) (*models.MenuItemRequest, error) {
	var req models.MenuItemRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return nil, models.ValidationError{Field: "body", Message: "invalid JSON format"}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}
