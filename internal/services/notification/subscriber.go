package notification

import (
	"context"
	"fmt"

	"campusbite/internal/logger"
	"campusbite/internal/messaging"
	"campusbite/internal/models"
)

// Subscriber consumes status-update events from the fanout queue and
// hands them to the dispatcher.
type Subscriber struct {
	consumer   *messaging.Consumer
	dispatcher *Dispatcher
	logger     *logger.Logger
}

// NewSubscriber creates a subscriber on the status notification queue
func NewSubscriber(conn *messaging.Connection, dispatcher *Dispatcher, log *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer:   messaging.NewConsumer(conn, log, messaging.NotificationQueue, "notification-subscriber", 10),
		dispatcher: dispatcher,
		logger:     log,
	}
}

// Start consumes events until the context is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	return s.consumer.StartConsuming(ctx, func(ctx context.Context, body []byte) error {
		var event models.StatusUpdateEvent
		if err := messaging.ParseMessage(body, &event); err != nil {
			// malformed messages are acked away, requeueing cannot fix them
			s.logger.Error("event_parse_failed", "Dropping malformed status event", "", err, nil)
			return nil
		}
		if event.OrderNumber == "" || event.UserID == "" {
			s.logger.Error("event_incomplete", "Dropping status event with missing fields", "",
				fmt.Errorf("order_number=%q user_id=%q", event.OrderNumber, event.UserID), nil)
			return nil
		}

		s.dispatcher.HandleEvent(ctx, event)
		return nil
	})
}

// Close stops the underlying consumer
func (s *Subscriber) Close() error {
	return s.consumer.Close()
}
