package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
)

// LogEvents subscribes to topic and logs every event until ctx is cancelled or the
// subscriber closes. The returned channel is closed once the loop exits.
func LogEvents(ctx context.Context, subscriber message.Subscriber, topic string, logger *slog.Logger) (<-chan struct{}, error) {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range messages {
			event, err := DecodeMessage(msg)
			if err != nil {
				logger.Warn("Dropping undecodable event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}

			logger.Info("Domain event",
				"event_id", event.ID,
				"event_type", event.Type,
				"user_id", event.UserID)
			msg.Ack()
		}
	}()

	return done, nil
}
