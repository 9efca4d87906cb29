package models

import (
	"errors"
	"fmt"
)

// Core error taxonomy. Handlers map these to HTTP status codes with errors.Is.
var (
	ErrEmptyCart                 = errors.New("cart is empty")
	ErrNoValidItems              = errors.New("no valid items in cart")
	ErrInvalidRequiredTime       = errors.New("invalid required-by time")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrInvalidTransition         = errors.New("invalid status transition")
	ErrPaymentNotCollected       = errors.New("payment not collected")
	ErrNotFound                  = errors.New("not found")
	ErrPermissionDenied          = errors.New("permission denied")
	ErrUnavailable               = errors.New("downstream unavailable")
	ErrDuplicateRequest          = errors.New("duplicate request")
)

// ValidationError reports a field-level input problem
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
