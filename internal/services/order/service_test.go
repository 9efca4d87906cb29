package order

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"campusbite/internal/logger"
	"campusbite/internal/models"
	"campusbite/internal/payment"
	"campusbite/internal/services/catalog"
)

// --- fakes ---

type fakeCart struct {
	lines map[string][]models.CartLine
}

func (f *fakeCart) ListLines(ctx context.Context, userID string) ([]models.CartLine, error) {
	return f.lines[userID], nil
}

type fakeCatalog struct {
	items map[int64]models.MenuItem
}

func (f *fakeCatalog) GetItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: menu item %d", models.ErrNotFound, id)
	}
	return &item, nil
}

type fakeStore struct {
	cart       *fakeCart
	orders     map[string]*models.Order
	history    map[string][]models.OrderStatusHistory
	seq        int
	failCreate bool
}

func newFakeStore(cart *fakeCart) *fakeStore {
	return &fakeStore{
		cart:    cart,
		orders:  make(map[string]*models.Order),
		history: make(map[string][]models.OrderStatusHistory),
	}
}

func (f *fakeStore) CreateOrderClearingCart(ctx context.Context, order *models.Order) error {
	if f.failCreate {
		return fmt.Errorf("%w: storage down", models.ErrUnavailable)
	}
	f.seq++
	order.ID = int64(f.seq)
	order.Number = models.GenerateOrderNumber(time.Now().UTC(), f.seq)
	order.CreatedAt = time.Now().UTC()

	stored := *order
	f.orders[order.Number] = &stored
	f.history[order.Number] = append(f.history[order.Number], models.OrderStatusHistory{
		Status: order.Status, ChangedBy: "order-service", ChangedAt: order.CreatedAt,
	})

	// cart clear happens in the same unit of work
	delete(f.cart.lines, order.UserID)
	return nil
}

func (f *fakeStore) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	stored, ok := f.orders[number]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, number)
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeStore) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (f *fakeStore) ListAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	for _, o := range f.orders {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (f *fakeStore) History(ctx context.Context, number string) ([]models.OrderStatusHistory, error) {
	return f.history[number], nil
}

func (f *fakeStore) TransitionStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, changedBy string) error {
	for _, o := range f.orders {
		if o.ID == orderID {
			if o.Status != from {
				return fmt.Errorf("%w: order moved past %s concurrently", models.ErrInvalidTransition, from)
			}
			o.Status = to
			f.history[o.Number] = append(f.history[o.Number], models.OrderStatusHistory{
				Status: to, ChangedBy: changedBy, ChangedAt: time.Now().UTC(),
			})
			return nil
		}
	}
	return fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
}

func (f *fakeStore) SetPaymentCompleted(ctx context.Context, orderID int64) error {
	for _, o := range f.orders {
		if o.ID == orderID {
			o.PaymentStatus = models.PaymentCompleted
			return nil
		}
	}
	return fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
}

type fakeAuthorizer struct {
	result payment.VerificationResult
	err    error
	calls  int
}

func (f *fakeAuthorizer) Verify(ctx context.Context, paymentRef string) (payment.VerificationResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeIdem struct {
	claimed map[string]bool
}

func (f *fakeIdem) key(userID, key string) string { return userID + ":" + key }

func (f *fakeIdem) Claim(ctx context.Context, userID, key string) error {
	if f.claimed == nil {
		f.claimed = make(map[string]bool)
	}
	if f.claimed[f.key(userID, key)] {
		return fmt.Errorf("%w: idempotency key already used", models.ErrDuplicateRequest)
	}
	f.claimed[f.key(userID, key)] = true
	return nil
}

func (f *fakeIdem) Release(ctx context.Context, userID, key string) error {
	delete(f.claimed, f.key(userID, key))
	return nil
}

// --- fixture ---

type fixture struct {
	cart       *fakeCart
	catalog    *fakeCatalog
	store      *fakeStore
	authorizer *fakeAuthorizer
	idem       *fakeIdem
	service    *Service
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cart := &fakeCart{lines: make(map[string][]models.CartLine)}
	cat := &fakeCatalog{items: map[int64]models.MenuItem{
		1: {ID: 1, Name: "Chicken Biryani", PriceMinor: 18000, Available: true},
		2: {ID: 2, Name: "Masala Chai", PriceMinor: 2500, Available: true},
	}}
	store := newFakeStore(cart)
	authorizer := &fakeAuthorizer{result: payment.Authorized}
	idem := &fakeIdem{}

	log := logger.New("test")
	service := NewService(cart, catalog.NewResolver(cat, log), store, authorizer, idem, log, 4)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	return &fixture{
		cart:       cart,
		catalog:    cat,
		store:      store,
		authorizer: authorizer,
		idem:       idem,
		service:    service,
		now:        now,
	}
}

func (f *fixture) fillCart(userID string) {
	f.cart.lines[userID] = []models.CartLine{
		{UserID: userID, MenuItemID: 1, Name: "Chicken Biryani", PriceMinor: 18000, Quantity: 1},
		{UserID: userID, MenuItemID: 2, Name: "Masala Chai", PriceMinor: 2500, Quantity: 2},
	}
}

func (f *fixture) checkoutRequest(method string) *models.CheckoutRequest {
	return &models.CheckoutRequest{
		RequiredByTime: f.now.Add(45 * time.Minute).Format(time.RFC3339),
		PaymentMethod:  method,
	}
}

var testCustomer = Customer{UserID: "student-1", Name: "Asha", Email: "asha@hitam.org"}

// --- checkout ---

func TestPlaceOrder_CashOnPickup(t *testing.T) {
	f := newFixture(t)
	f.fillCart(testCustomer.UserID)

	resp, err := f.service.PlaceOrder(context.Background(), testCustomer, f.checkoutRequest("cash_on_pickup"), "", "req_test")
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}

	if resp.TotalMinor != 23000 {
		t.Errorf("total = %d, want 23000", resp.TotalMinor)
	}
	if resp.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", resp.Status)
	}
	if resp.PaymentStatus != models.PaymentPending {
		t.Errorf("payment status = %s, want pending", resp.PaymentStatus)
	}

	// cart must be empty immediately after a successful checkout
	if lines := f.cart.lines[testCustomer.UserID]; len(lines) != 0 {
		t.Errorf("cart not cleared, %d lines remain", len(lines))
	}

	order, err := f.store.GetByNumber(context.Background(), resp.OrderNumber)
	if err != nil {
		t.Fatalf("created order not found: %v", err)
	}
	if order.TotalMinor != models.TotalMinor(order.Items) {
		t.Errorf("total %d != sum of lines %d", order.TotalMinor, models.TotalMinor(order.Items))
	}
	if f.authorizer.calls != 0 {
		t.Errorf("cash checkout must not call the payment authorizer")
	}
}

func TestPlaceOrder_PriceFrozenAgainstLaterEdits(t *testing.T) {
	f := newFixture(t)
	f.fillCart(testCustomer.UserID)

	resp, err := f.service.PlaceOrder(context.Background(), testCustomer, f.checkoutRequest("cash_on_pickup"), "", "req_test")
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}

	// staff raises the biryani price after checkout
	item := f.catalog.items[1]
	item.PriceMinor = 22000
	f.catalog.items[1] = item

	order, err := f.store.GetByNumber(context.Background(), resp.OrderNumber)
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	for _, line := range order.Items {
		if line.MenuItemID == 1 && line.PriceMinor != 18000 {
			t.Errorf("frozen price changed to %d after catalog edit", line.PriceMinor)
		}
	}
	if order.TotalMinor != 23000 {
		t.Errorf("total recomputed to %d", order.TotalMinor)
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PlaceOrder(context.Background(), testCustomer, f.checkoutRequest("cash_on_pickup"), "", "req_test")
	if !errors.Is(err, models.ErrEmptyCart) {
		t.Fatalf("got %v, want ErrEmptyCart", err)
	}
	if len(f.store.orders) != 0 {
		t.Error("order created from an empty cart")
	}
}

func TestPlaceOrder_InvalidRequiredTime(t *testing.T) {
	f := newFixture(t)
	f.fillCart(testCustomer.UserID)

	req := &models.CheckoutRequest{
		RequiredByTime: f.now.Add(5 * time.Minute).Format(time.RFC3339),
		PaymentMethod:  "cash_on_pickup",
	}

	_, err := f.service.PlaceOrder(context.Background(), testCustomer, req, "", "req_test")
	if !errors.Is(err, models.ErrInvalidRequiredTime) {
		t.Fatalf("got %v, want ErrInvalidRequiredTime", err)
	}

	// failed checkout leaves the cart unchanged
	if len(f.cart.lines[testCustomer.UserID]) != 2 {
		t.Error("cart modified by failed checkout")
	}
	if len(f.store.orders) != 0 {
		t.Error("order created despite validation failure")
	}
}

func TestPlaceOrder_NoValidItems(t *testing.T) {
	f := newFixture(t)
	f.cart.lines[testCustomer.UserID] = []models.CartLine{
		{UserID: testCustomer.UserID, MenuItemID: 1, Quantity: 0},
	}

	_, err := f.service.PlaceOrder(context.Background(), testCustomer, f.checkoutRequest("cash_on_pickup"), "", "req_test")
	if !errors.Is(err, models.ErrNoValidItems) {
		t.Fatalf("got %v, want ErrNoValidItems", err)
	}
}

func TestPlaceOrder_OnlineAuthorized(t *testing.T) {
	f := newFixture(t)
	f.fillCart(testCustomer.UserID)

	req := f.checkoutRequest("online")
	req.PaymentProof = "pay_abc123"

	resp, err := f.service.PlaceOrder(context.Background(), testCustomer, req, "", "req_test")
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	if resp.PaymentStatus != models.PaymentCompleted {
		t.Errorf("payment status = %s, want completed", resp.PaymentStatus)
	}

	order, _ := f.store.GetByNumber(context.Background(), resp.OrderNumber)
	if order.PaymentRef == nil || *order.PaymentRef != "pay_abc123" {
		t.Errorf("payment ref not recorded: %v", order.PaymentRef)
	}
}

func TestPlaceOrder_OnlinePaymentFailures(t *testing.T) {
	tests := []struct {
		name   string
		result payment.VerificationResult
		err    error
		proof  string
	}{
		{"rejected", payment.Rejected, nil, "pay_bad"},
		{"timeout", payment.Unknown, nil, "pay_slow"},
		{"unreachable", payment.Unknown, fmt.Errorf("connection refused"), "pay_x"},
		{"missing proof", payment.Authorized, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fillCart(testCustomer.UserID)
			f.authorizer.result = tt.result
			f.authorizer.err = tt.err

			req := f.checkoutRequest("online")
			req.PaymentProof = tt.proof

			_, err := f.service.PlaceOrder(context.Background(), testCustomer, req, "", "req_test")
			if !errors.Is(err, models.ErrPaymentVerificationFailed) {
				t.Fatalf("got %v, want ErrPaymentVerificationFailed", err)
			}

			// payment failure must not create an order or touch the cart
			if len(f.store.orders) != 0 {
				t.Error("order created despite payment failure")
			}
			if len(f.cart.lines[testCustomer.UserID]) != 2 {
				t.Error("cart modified despite payment failure")
			}
		})
	}
}

func TestPlaceOrder_StoreFailureLeavesCartIntact(t *testing.T) {
	f := newFixture(t)
	f.fillCart(testCustomer.UserID)
	f.store.failCreate = true

	_, err := f.service.PlaceOrder(context.Background(), testCustomer, f.checkoutRequest("cash_on_pickup"), "", "req_test")
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if len(f.cart.lines[testCustomer.UserID]) != 2 {
		t.Error("cart modified despite persistence failure")
	}
}

func TestPlaceOrder_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	f.fillCart(testCustomer.UserID)

	if _, err := f.service.PlaceOrder(context.Background(), testCustomer, f.checkoutRequest("cash_on_pickup"), "key-1", "req_test"); err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}

	f.fillCart(testCustomer.UserID)
	_, err := f.service.PlaceOrder(context.Background(), testCustomer, f.checkoutRequest("cash_on_pickup"), "key-1", "req_test")
	if !errors.Is(err, models.ErrDuplicateRequest) {
		t.Fatalf("got %v, want ErrDuplicateRequest", err)
	}
	if len(f.store.orders) != 1 {
		t.Errorf("duplicate submit created %d orders", len(f.store.orders))
	}
}

func TestPlaceOrder_KeyReleasedOnFailure(t *testing.T) {
	f := newFixture(t)

	// empty cart fails the checkout after the key is claimed
	_, err := f.service.PlaceOrder(context.Background(), testCustomer, f.checkoutRequest("cash_on_pickup"), "key-2", "req_test")
	if !errors.Is(err, models.ErrEmptyCart) {
		t.Fatalf("got %v, want ErrEmptyCart", err)
	}

	// the same key must be usable for the retry
	f.fillCart(testCustomer.UserID)
	if _, err := f.service.PlaceOrder(context.Background(), testCustomer, f.checkoutRequest("cash_on_pickup"), "key-2", "req_test"); err != nil {
		t.Fatalf("retry with released key failed: %v", err)
	}
}

// --- status state machine ---

func placeTestOrder(t *testing.T, f *fixture, method string) string {
	t.Helper()
	f.fillCart(testCustomer.UserID)
	req := f.checkoutRequest(method)
	if method == "online" {
		req.PaymentProof = "pay_ok"
	}
	resp, err := f.service.PlaceOrder(context.Background(), testCustomer, req, "", "req_test")
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	return resp.OrderNumber
}

func TestUpdateStatus_HappyPath(t *testing.T) {
	f := newFixture(t)
	number := placeTestOrder(t, f, "online")

	var events []models.StatusUpdateEvent
	f.service.OnTransition(func(ctx context.Context, event models.StatusUpdateEvent) {
		events = append(events, event)
	})

	for _, target := range []models.OrderStatus{models.StatusPreparing, models.StatusReadyForPickup, models.StatusCompleted} {
		if _, err := f.service.UpdateStatus(context.Background(), number, target, "staff@hitam.org", "req_test"); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
	}

	if len(events) != 3 {
		t.Fatalf("observer saw %d events, want 3", len(events))
	}
	if events[0].OldStatus != models.StatusPending || events[0].NewStatus != models.StatusPreparing {
		t.Errorf("first event = %s -> %s", events[0].OldStatus, events[0].NewStatus)
	}
	if events[2].NewStatus != models.StatusCompleted {
		t.Errorf("last event target = %s", events[2].NewStatus)
	}
}

func TestUpdateStatus_SkippingPreparingIsLegal(t *testing.T) {
	f := newFixture(t)
	number := placeTestOrder(t, f, "online")

	if _, err := f.service.UpdateStatus(context.Background(), number, models.StatusReadyForPickup, "staff@hitam.org", "req_test"); err != nil {
		t.Fatalf("pending -> ready_for_pickup should be accepted: %v", err)
	}
}

func TestUpdateStatus_IllegalTransitions(t *testing.T) {
	f := newFixture(t)
	number := placeTestOrder(t, f, "online")

	if _, err := f.service.UpdateStatus(context.Background(), number, models.StatusCompleted, "staff@hitam.org", "req_test"); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("pending -> completed: got %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateStatus_TerminalStatesRejectEverything(t *testing.T) {
	f := newFixture(t)
	number := placeTestOrder(t, f, "online")

	if _, err := f.service.UpdateStatus(context.Background(), number, models.StatusCancelled, "staff@hitam.org", "req_test"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	for _, target := range []models.OrderStatus{models.StatusPending, models.StatusPreparing, models.StatusReadyForPickup, models.StatusCompleted} {
		if _, err := f.service.UpdateStatus(context.Background(), number, target, "staff@hitam.org", "req_test"); !errors.Is(err, models.ErrInvalidTransition) {
			t.Errorf("cancelled -> %s: got %v, want ErrInvalidTransition", target, err)
		}
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.UpdateStatus(context.Background(), "ORD_19700101_001", models.StatusPreparing, "staff@hitam.org", "req_test"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateStatus_ObserverPanicIsSwallowed(t *testing.T) {
	f := newFixture(t)
	number := placeTestOrder(t, f, "online")

	f.service.OnTransition(func(ctx context.Context, event models.StatusUpdateEvent) {
		panic("notification transport exploded")
	})

	order, err := f.service.UpdateStatus(context.Background(), number, models.StatusPreparing, "staff@hitam.org", "req_test")
	if err != nil {
		t.Fatalf("observer failure must not fail the transition: %v", err)
	}
	if order.Status != models.StatusPreparing {
		t.Errorf("status = %s", order.Status)
	}
}

// --- cash-completion gate ---

func TestCashCompletionGate(t *testing.T) {
	f := newFixture(t)
	number := placeTestOrder(t, f, "cash_on_pickup")

	if _, err := f.service.UpdateStatus(context.Background(), number, models.StatusReadyForPickup, "staff@hitam.org", "req_test"); err != nil {
		t.Fatalf("to ready_for_pickup: %v", err)
	}

	// completing with uncollected cash is held
	_, err := f.service.UpdateStatus(context.Background(), number, models.StatusCompleted, "staff@hitam.org", "req_test")
	if !errors.Is(err, models.ErrPaymentNotCollected) {
		t.Fatalf("got %v, want ErrPaymentNotCollected", err)
	}

	order, err := f.service.ConfirmCashCollected(context.Background(), number, "staff@hitam.org", "req_test")
	if err != nil {
		t.Fatalf("ConfirmCashCollected: %v", err)
	}
	if order.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", order.Status)
	}
	if order.PaymentStatus != models.PaymentCompleted {
		t.Errorf("payment status = %s, want completed", order.PaymentStatus)
	}
}

func TestConfirmCashCollected_OnlineOrderRejected(t *testing.T) {
	f := newFixture(t)
	number := placeTestOrder(t, f, "online")

	_, err := f.service.ConfirmCashCollected(context.Background(), number, "staff@hitam.org", "req_test")
	var vErr models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}

// --- queries ---

func TestGetOrder_Ownership(t *testing.T) {
	f := newFixture(t)
	number := placeTestOrder(t, f, "online")

	if _, err := f.service.GetOrder(context.Background(), number, testCustomer.UserID, false); err != nil {
		t.Errorf("owner read failed: %v", err)
	}
	if _, err := f.service.GetOrder(context.Background(), number, "someone-else", false); !errors.Is(err, models.ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
	if _, err := f.service.GetOrder(context.Background(), number, "staff-1", true); err != nil {
		t.Errorf("staff read failed: %v", err)
	}
}

func TestHistory_RecordsTransitions(t *testing.T) {
	f := newFixture(t)
	number := placeTestOrder(t, f, "online")

	if _, err := f.service.UpdateStatus(context.Background(), number, models.StatusPreparing, "staff@hitam.org", "req_test"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	history, err := f.service.History(context.Background(), number, testCustomer.UserID, false)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
	if history[0].Status != models.StatusPending || history[1].Status != models.StatusPreparing {
		t.Errorf("history = %+v", history)
	}
}
