package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eduka/notification-service/internal/models"
	"go.uber.org/zap"
)

// Broker is the slice of the rabbit client the publisher needs.
type Broker interface {
	Publish(ctx context.Context, routingKey string, body []byte, messageID string) error
}

// Publisher routes notification messages onto the exchange. Publishing is
// best-effort: a broker-level send failure is logged and absorbed so the
// business operation that triggered the notification never fails because the
// notification could not be sent. Caller errors (invalid category, failed
// preconditions) are returned and must be rejected before anything is queued.
type Publisher struct {
	broker Broker
	logger *zap.Logger
}

func NewPublisher(broker Broker, logger *zap.Logger) *Publisher {
	return &Publisher{broker: broker, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, msg *models.NotificationMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	routingKey, err := RoutingKey(msg.Category)
	if err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := p.broker.Publish(ctx, routingKey, body, msg.ID); err != nil {
		p.logger.Error("broker publish failed, notification dropped",
			zap.String("notification_id", msg.ID),
			zap.String("category", string(msg.Category)),
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return nil
	}
	p.logger.Info("notification published",
		zap.String("notification_id", msg.ID),
		zap.String("routing_key", routingKey),
	)
	return nil
}
