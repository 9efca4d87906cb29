package order

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"campusbite/internal/logger"
	"campusbite/internal/models"
	"campusbite/internal/payment"
)

// CartReader lists a user's cart lines at checkout time
type CartReader interface {
	ListLines(ctx context.Context, userID string) ([]models.CartLine, error)
}

// LineResolver freezes cart lines against the live catalog
type LineResolver interface {
	Resolve(ctx context.Context, lines []models.CartLine) ([]models.OrderLine, error)
}

// Store persists orders. CreateOrderClearingCart must persist the
// order and empty the user's cart as a single atomic unit of work.
type Store interface {
	CreateOrderClearingCart(ctx context.Context, order *models.Order) error
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	History(ctx context.Context, number string) ([]models.OrderStatusHistory, error)
	TransitionStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, changedBy string) error
	SetPaymentCompleted(ctx context.Context, orderID int64) error
}

// IdempotencyStore claims checkout idempotency keys
type IdempotencyStore interface {
	Claim(ctx context.Context, userID, key string) error
	Release(ctx context.Context, userID, key string) error
}

// Customer is the explicit caller context for checkout; identity is
// never ambient state.
type Customer struct {
	UserID string
	Name   string
	Email  string
}

// TransitionObserver is invoked after every accepted status
// transition. Observers are best-effort: they cannot fail or roll
// back the transition.
type TransitionObserver func(ctx context.Context, event models.StatusUpdateEvent)

// Service is the cart-to-order engine: it builds immutable orders from
// carts and drives the order status state machine.
type Service struct {
	cart       CartReader
	resolver   LineResolver
	store      Store
	authorizer payment.Authorizer
	idem       IdempotencyStore
	logger     *logger.Logger
	sem        *semaphore.Weighted
	observers  []TransitionObserver

	now func() time.Time
}

// NewService creates the order service. maxConcurrent bounds the
// number of in-flight checkouts; idem may be nil to disable
// idempotency keys.
func NewService(cart CartReader, resolver LineResolver, store Store, authorizer payment.Authorizer,
	idem IdempotencyStore, log *logger.Logger, maxConcurrent int) *Service {

	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Service{
		cart:       cart,
		resolver:   resolver,
		store:      store,
		authorizer: authorizer,
		idem:       idem,
		logger:     log,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		now:        time.Now,
	}
}

// OnTransition registers an observer for accepted status transitions
func (s *Service) OnTransition(obs TransitionObserver) {
	s.observers = append(s.observers, obs)
}

// PlaceOrder converts the customer's cart into an immutable order.
// Either the order exists and the cart is empty afterwards, or the
// order does not exist and the cart is unchanged — never anything in
// between.
func (s *Service) PlaceOrder(ctx context.Context, customer Customer, req *models.CheckoutRequest,
	idempotencyKey, requestID string) (*models.CheckoutResponse, error) {

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: checkout capacity: %v", models.ErrUnavailable, err)
	}
	defer s.sem.Release(1)

	requiredBy, method, err := req.Validate(s.now())
	if err != nil {
		return nil, err
	}

	if idempotencyKey != "" && s.idem != nil {
		if err := s.idem.Claim(ctx, customer.UserID, idempotencyKey); err != nil {
			return nil, err
		}
	}

	order, err := s.buildOrder(ctx, customer, requiredBy, method, req.PaymentProof, requestID)
	if err != nil {
		// no order was created; free the key so the client can retry
		if idempotencyKey != "" && s.idem != nil {
			if relErr := s.idem.Release(ctx, customer.UserID, idempotencyKey); relErr != nil {
				s.logger.Error("idempotency_release_failed", "Failed to release idempotency key", requestID, relErr, nil)
			}
		}
		return nil, err
	}

	s.logger.Info("order_created", "Order placed", requestID, map[string]interface{}{
		"order_number":   order.Number,
		"user_id":        customer.UserID,
		"total_minor":    order.TotalMinor,
		"payment_method": string(order.PaymentMethod),
	})

	return &models.CheckoutResponse{
		OrderNumber:   order.Number,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalMinor:    order.TotalMinor,
	}, nil
}

func (s *Service) buildOrder(ctx context.Context, customer Customer, requiredBy time.Time,
	method models.PaymentMethod, paymentProof, requestID string) (*models.Order, error) {

	lines, err := s.cart.ListLines(ctx, customer.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, models.ErrEmptyCart
	}

	frozen, err := s.resolver.Resolve(ctx, lines)
	if err != nil {
		return nil, err
	}
	if len(frozen) == 0 {
		return nil, models.ErrNoValidItems
	}

	paymentStatus := models.PaymentPending
	var paymentRef *string
	if method == models.PaymentOnline {
		if err := s.verifyPayment(ctx, paymentProof, requestID); err != nil {
			return nil, err
		}
		paymentStatus = models.PaymentCompleted
		paymentRef = &paymentProof
	}

	order := &models.Order{
		UserID:        customer.UserID,
		StudentName:   customer.Name,
		StudentEmail:  customer.Email,
		Items:         frozen,
		TotalMinor:    models.TotalMinor(frozen),
		Status:        models.StatusPending,
		PaymentMethod: method,
		PaymentStatus: paymentStatus,
		PaymentRef:    paymentRef,
		RequiredBy:    requiredBy,
	}

	// order write and cart clear are one unit of work
	if err := s.store.CreateOrderClearingCart(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	return order, nil
}

// verifyPayment asks the external authorizer whether the proof is
// good. Anything but an explicit authorization aborts the checkout
// before any state is touched.
func (s *Service) verifyPayment(ctx context.Context, paymentProof, requestID string) error {
	if paymentProof == "" {
		return fmt.Errorf("%w: payment_proof is required for online payment", models.ErrPaymentVerificationFailed)
	}

	result, err := s.authorizer.Verify(ctx, paymentProof)
	if err != nil {
		s.logger.Error("payment_verify_failed", "Payment authorizer error", requestID, err, nil)
		return fmt.Errorf("%w: %v", models.ErrPaymentVerificationFailed, err)
	}

	switch result {
	case payment.Authorized:
		return nil
	case payment.Unknown:
		return fmt.Errorf("%w: authorizer did not respond in time", models.ErrPaymentVerificationFailed)
	default:
		return fmt.Errorf("%w: payment was rejected", models.ErrPaymentVerificationFailed)
	}
}

// UpdateStatus drives the order status state machine. The store-side
// compare-and-set makes concurrent attempts on the same order
// serialize; the loser gets ErrInvalidTransition.
func (s *Service) UpdateStatus(ctx context.Context, orderNumber string, target models.OrderStatus,
	changedBy, requestID string) (*models.Order, error) {

	order, err := s.store.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, target)
	}

	// a cash order cannot silently complete; the handoff must be
	// confirmed through ConfirmCashCollected first
	if target == models.StatusCompleted &&
		order.PaymentMethod.RequiresPickupCollection() &&
		order.PaymentStatus != models.PaymentCompleted {
		return nil, fmt.Errorf("%w: confirm cash collection before completing order %s",
			models.ErrPaymentNotCollected, orderNumber)
	}

	if err := s.store.TransitionStatus(ctx, order.ID, order.Status, target, changedBy); err != nil {
		return nil, err
	}

	event := models.StatusUpdateEvent{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		UserID:      order.UserID,
		OldStatus:   order.Status,
		NewStatus:   target,
		ChangedBy:   changedBy,
		Timestamp:   s.now().UTC(),
	}
	s.notifyObservers(ctx, event, requestID)

	s.logger.Info("status_updated", "Order status changed", requestID, map[string]interface{}{
		"order_number": order.Number,
		"old_status":   string(order.Status),
		"new_status":   string(target),
		"changed_by":   changedBy,
	})

	order.Status = target
	return order, nil
}

// ConfirmCashCollected records the cash handoff for a pay-on-pickup
// order and then performs the completion transition itself.
func (s *Service) ConfirmCashCollected(ctx context.Context, orderNumber, changedBy, requestID string) (*models.Order, error) {
	order, err := s.store.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if !order.PaymentMethod.RequiresPickupCollection() {
		return nil, models.ValidationError{
			Field:   "payment_method",
			Message: "order is not pay-on-pickup",
		}
	}

	if order.PaymentStatus != models.PaymentCompleted {
		if err := s.store.SetPaymentCompleted(ctx, order.ID); err != nil {
			return nil, err
		}
		s.logger.Info("cash_collected", "Cash payment reconciled", requestID, map[string]interface{}{
			"order_number": order.Number,
			"changed_by":   changedBy,
		})
	}

	return s.UpdateStatus(ctx, orderNumber, models.StatusCompleted, changedBy, requestID)
}

// GetOrder returns a single order. Students may only read their own
// orders; staff may read any.
func (s *Service) GetOrder(ctx context.Context, orderNumber, callerID string, staff bool) (*models.Order, error) {
	order, err := s.store.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !staff && order.UserID != callerID {
		return nil, fmt.Errorf("%w: order %s", models.ErrPermissionDenied, orderNumber)
	}
	return order, nil
}

// History returns an order's status log, with the same ownership rule
// as GetOrder.
func (s *Service) History(ctx context.Context, orderNumber, callerID string, staff bool) ([]models.OrderStatusHistory, error) {
	if _, err := s.GetOrder(ctx, orderNumber, callerID, staff); err != nil {
		return nil, err
	}
	return s.store.History(ctx, orderNumber)
}

// ListMyOrders returns the caller's orders, newest first
func (s *Service) ListMyOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListAllOrders returns every order for the staff dashboard
func (s *Service) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.ListAll(ctx)
}

func (s *Service) notifyObservers(ctx context.Context, event models.StatusUpdateEvent, requestID string) {
	for _, obs := range s.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("observer_panicked", "Transition observer panicked", requestID,
						fmt.Errorf("%v", r), map[string]interface{}{
							"order_number": event.OrderNumber,
						})
				}
			}()
			obs(ctx, event)
		}()
	}
}
