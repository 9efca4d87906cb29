package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"campusbite/internal/logger"
	"campusbite/internal/models"
)

type fakeTokens struct {
	tokens map[string][]string
	err    error
}

func (f *fakeTokens) Register(ctx context.Context, userID, token string) error {
	if f.tokens == nil {
		f.tokens = make(map[string][]string)
	}
	f.tokens[userID] = append(f.tokens[userID], token)
	return nil
}

func (f *fakeTokens) ListTokens(ctx context.Context, userID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens[userID], nil
}

type fakeSender struct {
	calls  int
	tokens []string
	title  string
	body   string
	err    error
}

func (f *fakeSender) Send(ctx context.Context, tokens []string, title, body string) error {
	f.calls++
	f.tokens = tokens
	f.title = title
	f.body = body
	return f.err
}

func testEvent() models.StatusUpdateEvent {
	return models.StatusUpdateEvent{
		OrderID:     7,
		OrderNumber: "ORD_20250310_001",
		UserID:      "student-1",
		OldStatus:   models.StatusPreparing,
		NewStatus:   models.StatusReadyForPickup,
		ChangedBy:   "staff@hitam.org",
		Timestamp:   time.Now().UTC(),
	}
}

func TestDispatcher_SendsToRegisteredDevices(t *testing.T) {
	tokens := &fakeTokens{tokens: map[string][]string{
		"student-1": {"device-a", "device-b"},
	}}
	sender := &fakeSender{}
	dispatcher := NewDispatcher(tokens, sender, logger.New("test"))

	dispatcher.HandleEvent(context.Background(), testEvent())

	if sender.calls != 1 {
		t.Fatalf("sender called %d times, want 1", sender.calls)
	}
	if len(sender.tokens) != 2 {
		t.Errorf("multicast to %d tokens, want 2", len(sender.tokens))
	}
	if sender.title != "Order #ORD_20250310_001 Update" {
		t.Errorf("title = %q", sender.title)
	}
	if sender.body != "Your order is now Ready for Pickup" {
		t.Errorf("body = %q", sender.body)
	}
}

func TestDispatcher_NoTokensIsNoOp(t *testing.T) {
	sender := &fakeSender{}
	dispatcher := NewDispatcher(&fakeTokens{}, sender, logger.New("test"))

	dispatcher.HandleEvent(context.Background(), testEvent())

	if sender.calls != 0 {
		t.Errorf("sender called for a user with no devices")
	}
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	t.Run("lookup failure", func(t *testing.T) {
		dispatcher := NewDispatcher(&fakeTokens{err: fmt.Errorf("db down")}, &fakeSender{}, logger.New("test"))
		dispatcher.HandleEvent(context.Background(), testEvent())
	})

	t.Run("send failure", func(t *testing.T) {
		tokens := &fakeTokens{tokens: map[string][]string{"student-1": {"device-a"}}}
		sender := &fakeSender{err: fmt.Errorf("transport down")}
		dispatcher := NewDispatcher(tokens, sender, logger.New("test"))
		dispatcher.HandleEvent(context.Background(), testEvent())
	})
}
