package models

import (
	"fmt"
	"time"
)

// MenuItem is a catalog entry managed by staff. Prices are integer
// minor currency units (paise) to avoid floating point drift.
type MenuItem struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	PriceMinor  int64     `json:"price_minor" db:"price_minor"`
	Category    string    `json:"category" db:"category"`
	ImageURL    string    `json:"image_url,omitempty" db:"image_url"`
	Available   bool      `json:"available" db:"available"`
	PrepMinutes int       `json:"prep_minutes" db:"prep_minutes"`
	CreatedAt   time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// MenuItemRequest is the staff payload to create or update a menu item
type MenuItemRequest struct {
	Name        string `json:"name"`
	PriceMinor  int64  `json:"price_minor"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url,omitempty"`
	Available   *bool  `json:"available,omitempty"`
	PrepMinutes int    `json:"prep_minutes"`
}

// Validate checks the menu item payload
func (req *MenuItemRequest) Validate() error {
	if req.Name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(req.Name) > 100 {
		return ValidationError{Field: "name", Message: "name must not exceed 100 characters"}
	}
	if req.PriceMinor <= 0 {
		return ValidationError{Field: "price_minor", Message: "price must be a positive amount in minor units"}
	}
	if req.Category == "" {
		return ValidationError{Field: "category", Message: "category is required"}
	}
	if req.PrepMinutes < 0 || req.PrepMinutes > 240 {
		return ValidationError{Field: "prep_minutes", Message: fmt.Sprintf("prep_minutes %d out of range", req.PrepMinutes)}
	}
	return nil
}
