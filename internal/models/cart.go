package models

import "time"

// CartLine is one user's pending quantity of one menu item. The name,
// price and image are a display snapshot refreshed on every add; the
// authoritative price is resolved against the live catalog at checkout.
type CartLine struct {
	UserID     string    `json:"-" db:"user_id"`
	MenuItemID int64     `json:"menu_item_id" db:"menu_item_id"`
	Name       string    `json:"name" db:"name"`
	PriceMinor int64     `json:"price_minor" db:"price_minor"`
	ImageURL   string    `json:"image_url,omitempty" db:"image_url"`
	Quantity   int       `json:"quantity" db:"quantity"`
	AddedAt    time.Time `json:"added_at,omitempty" db:"added_at"`
}

// AddLineRequest adds quantity of a menu item to the caller's cart
type AddLineRequest struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
}

// Validate checks the add-to-cart payload. The delta only ever adds;
// quantities are reduced through SetQuantityRequest.
func (req *AddLineRequest) Validate() error {
	if req.MenuItemID <= 0 {
		return ValidationError{Field: "menu_item_id", Message: "menu_item_id is required"}
	}
	if req.Quantity < 1 {
		return ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}
	if req.Quantity > 20 {
		return ValidationError{Field: "quantity", Message: "quantity must not exceed 20"}
	}
	return nil
}

// SetQuantityRequest sets the exact quantity of a cart line.
// A quantity of zero or less removes the line.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}
