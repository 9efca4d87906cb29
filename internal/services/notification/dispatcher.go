package notification

import (
	"context"
	"fmt"

	"campusbite/internal/logger"
	"campusbite/internal/models"
)

// TokenStore looks up a user's registered device tokens
type TokenStore interface {
	Register(ctx context.Context, userID, token string) error
	ListTokens(ctx context.Context, userID string) ([]string, error)
}

// PushSender delivers one push message to a set of device tokens
type PushSender interface {
	Send(ctx context.Context, tokens []string, title, body string) error
}

// Dispatcher turns status-update events into push notifications. Every
// failure is logged and swallowed: notification delivery never feeds
// back into order processing.
type Dispatcher struct {
	tokens TokenStore
	sender PushSender
	logger *logger.Logger
}

// NewDispatcher creates a notification dispatcher
func NewDispatcher(tokens TokenStore, sender PushSender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		tokens: tokens,
		sender: sender,
		logger: log,
	}
}

// HandleEvent dispatches a push notification for one status change. A
// user with no registered tokens is a silent no-op.
func (d *Dispatcher) HandleEvent(ctx context.Context, event models.StatusUpdateEvent) {
	tokens, err := d.tokens.ListTokens(ctx, event.UserID)
	if err != nil {
		d.logger.Error("token_lookup_failed", "Failed to look up push tokens", "", err, map[string]interface{}{
			"order_number": event.OrderNumber,
			"user_id":      event.UserID,
		})
		return
	}
	if len(tokens) == 0 {
		d.logger.Debug("no_push_tokens", "User has no registered devices", "", map[string]interface{}{
			"user_id": event.UserID,
		})
		return
	}

	title := fmt.Sprintf("Order #%s Update", event.OrderNumber)
	body := fmt.Sprintf("Your order is now %s", event.NewStatus.DisplayName())

	if err := d.sender.Send(ctx, tokens, title, body); err != nil {
		d.logger.Error("push_send_failed", "Failed to deliver push notification", "", err, map[string]interface{}{
			"order_number": event.OrderNumber,
			"user_id":      event.UserID,
			"tokens":       len(tokens),
		})
		return
	}

	d.logger.Info("notification_sent", "Push notification delivered", "", map[string]interface{}{
		"order_number": event.OrderNumber,
		"new_status":   string(event.NewStatus),
		"tokens":       len(tokens),
	})
}
