package models

import (
	"fmt"
	"time"
)

// OrderStatus is the canonical fulfillment stage of an order.
// Display names like "Ready for Pickup" are a presentation concern.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusPreparing      OrderStatus = "preparing"
	StatusReadyForPickup OrderStatus = "ready_for_pickup"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
)

// statusTransitions is the full transition table. Completed and
// cancelled are terminal; no backward transitions exist.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusPreparing, StatusReadyForPickup, StatusCancelled},
	StatusPreparing:      {StatusReadyForPickup, StatusCancelled},
	StatusReadyForPickup: {StatusCompleted, StatusCancelled},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// CanTransitionTo reports whether target is a legal next status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are accepted
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseOrderStatus validates a status string against the canonical enum
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case StatusPending, StatusPreparing, StatusReadyForPickup, StatusCompleted, StatusCancelled:
		return OrderStatus(s), nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// DisplayName returns the user-facing name for a status
func (s OrderStatus) DisplayName() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusPreparing:
		return "Preparing"
	case StatusReadyForPickup:
		return "Ready for Pickup"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// PaymentStatus tracks whether funds are confirmed collected,
// independent of the fulfillment stage
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// PaymentMethod identifies how an order is paid
type PaymentMethod string

const (
	PaymentCashOnPickup PaymentMethod = "cash_on_pickup"
	PaymentOnline       PaymentMethod = "online"
)

// ParsePaymentMethod validates a payment method string
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCashOnPickup, PaymentOnline:
		return PaymentMethod(s), nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

// RequiresPickupCollection reports whether completing the order needs
// an explicit cash handoff confirmation
func (m PaymentMethod) RequiresPickupCollection() bool {
	return m == PaymentCashOnPickup
}

// OrderLine is an order's frozen copy of an item's name and price,
// captured at creation time and immune to later catalog edits
type OrderLine struct {
	MenuItemID int64  `json:"menu_item_id" db:"menu_item_id"`
	Name       string `json:"name" db:"name"`
	PriceMinor int64  `json:"price_minor" db:"price_minor"`
	Quantity   int    `json:"quantity" db:"quantity"`
}

// TotalMinor computes the order total in minor units
func TotalMinor(lines []OrderLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.PriceMinor * int64(line.Quantity)
	}
	return total
}

// Order is created exactly once per successful checkout. The line
// items and total are immutable after creation; only status, payment
// status and the payment reference are ever updated, by disjoint
// writers.
type Order struct {
	ID            int64         `json:"id,omitempty" db:"id"`
	Number        string        `json:"order_number" db:"number"`
	UserID        string        `json:"user_id" db:"user_id"`
	StudentName   string        `json:"student_name" db:"student_name"`
	StudentEmail  string        `json:"student_email" db:"student_email"`
	Items         []OrderLine   `json:"items"`
	TotalMinor    int64         `json:"total_minor" db:"total_minor"`
	Status        OrderStatus   `json:"status" db:"status"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentRef    *string       `json:"payment_ref,omitempty" db:"payment_ref"`
	RequiredBy    time.Time     `json:"required_by" db:"required_by"`
	CreatedAt     time.Time     `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at,omitempty" db:"updated_at"`
}

// Checkout lead-time window
const (
	MinRequiredByLead = 30 * time.Minute
	MaxRequiredByLead = 24 * time.Hour
)

// CheckoutRequest is the payload to convert the caller's cart into an order
type CheckoutRequest struct {
	RequiredByTime string `json:"required_by_time"`
	PaymentMethod  string `json:"payment_method"`
	PaymentProof   string `json:"payment_proof,omitempty"`
}

// Validate parses and checks the checkout payload against now
func (req *CheckoutRequest) Validate(now time.Time) (time.Time, PaymentMethod, error) {
	method, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return time.Time{}, "", ValidationError{Field: "payment_method", Message: err.Error()}
	}

	if req.RequiredByTime == "" {
		return time.Time{}, "", fmt.Errorf("%w: required_by_time is required", ErrInvalidRequiredTime)
	}

	requiredBy, err := time.Parse(time.RFC3339, req.RequiredByTime)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrInvalidRequiredTime, err)
	}

	if requiredBy.Before(now.Add(MinRequiredByLead)) {
		return time.Time{}, "", fmt.Errorf("%w: must be at least 30 minutes from now", ErrInvalidRequiredTime)
	}
	if requiredBy.After(now.Add(MaxRequiredByLead)) {
		return time.Time{}, "", fmt.Errorf("%w: must be within 24 hours", ErrInvalidRequiredTime)
	}

	return requiredBy, method, nil
}

// CheckoutResponse reports the identity and total of the created order
type CheckoutResponse struct {
	OrderNumber   string        `json:"order_number"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalMinor    int64         `json:"total_minor"`
}

// OrderStatusHistory is one entry in an order's status log
type OrderStatusHistory struct {
	Status    OrderStatus `json:"status" db:"status"`
	ChangedBy string      `json:"changed_by" db:"changed_by"`
	ChangedAt time.Time   `json:"timestamp" db:"changed_at"`
	Notes     *string     `json:"notes,omitempty" db:"notes"`
}

// GenerateOrderNumber formats an order number as ORD_YYYYMMDD_NNN
func GenerateOrderNumber(date time.Time, sequence int) string {
	return fmt.Sprintf("ORD_%s_%03d", date.Format("20060102"), sequence)
}
