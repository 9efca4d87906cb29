package models

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{StatusPending, StatusPreparing, true},
		{StatusPending, StatusReadyForPickup, true}, // skipping preparing is legal
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusPreparing, StatusReadyForPickup, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusPreparing, StatusPending, false},
		{StatusPreparing, StatusCompleted, false},
		{StatusReadyForPickup, StatusCompleted, true},
		{StatusReadyForPickup, StatusCancelled, true},
		{StatusReadyForPickup, StatusPreparing, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCompleted, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []OrderStatus{StatusPending, StatusPreparing, StatusReadyForPickup} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []OrderStatus{StatusCompleted, StatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := ParseOrderStatus("ready_for_pickup"); err != nil {
		t.Errorf("expected canonical status to parse: %v", err)
	}
	// display synonyms are not core states
	if _, err := ParseOrderStatus("Ready for Pickup"); err == nil {
		t.Error("expected display name to be rejected")
	}
	if _, err := ParseOrderStatus("ready"); err == nil {
		t.Error("expected legacy synonym to be rejected")
	}
}

func TestTotalMinor(t *testing.T) {
	lines := []OrderLine{
		{MenuItemID: 1, Name: "Chicken Biryani", PriceMinor: 18000, Quantity: 1},
		{MenuItemID: 2, Name: "Masala Chai", PriceMinor: 2500, Quantity: 2},
	}
	if got := TotalMinor(lines); got != 23000 {
		t.Errorf("TotalMinor = %d, want 23000", got)
	}
	if got := TotalMinor(nil); got != 0 {
		t.Errorf("TotalMinor(nil) = %d, want 0", got)
	}
}

func TestCheckoutRequestValidate(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		req     CheckoutRequest
		wantErr error
	}{
		{
			name: "valid cash order 45 minutes out",
			req: CheckoutRequest{
				RequiredByTime: now.Add(45 * time.Minute).Format(time.RFC3339),
				PaymentMethod:  "cash_on_pickup",
			},
		},
		{
			name: "too soon",
			req: CheckoutRequest{
				RequiredByTime: now.Add(10 * time.Minute).Format(time.RFC3339),
				PaymentMethod:  "cash_on_pickup",
			},
			wantErr: ErrInvalidRequiredTime,
		},
		{
			name: "too far out",
			req: CheckoutRequest{
				RequiredByTime: now.Add(25 * time.Hour).Format(time.RFC3339),
				PaymentMethod:  "online",
			},
			wantErr: ErrInvalidRequiredTime,
		},
		{
			name: "unparseable time",
			req: CheckoutRequest{
				RequiredByTime: "tomorrow noon",
				PaymentMethod:  "online",
			},
			wantErr: ErrInvalidRequiredTime,
		},
		{
			name: "missing time",
			req: CheckoutRequest{
				PaymentMethod: "online",
			},
			wantErr: ErrInvalidRequiredTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.req.Validate(now)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckoutRequestValidate_BadMethod(t *testing.T) {
	now := time.Now()
	req := CheckoutRequest{
		RequiredByTime: now.Add(time.Hour).Format(time.RFC3339),
		PaymentMethod:  "card_swipe",
	}
	_, _, err := req.Validate(now)
	var vErr ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "payment_method" {
		t.Errorf("unexpected field %q", vErr.Field)
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	date := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	if got := GenerateOrderNumber(date, 7); got != "ORD_20250310_007" {
		t.Errorf("GenerateOrderNumber = %q", got)
	}
}
