package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eduka/notification-service/internal/email"
	"github.com/eduka/notification-service/internal/models"
	"github.com/eduka/notification-service/internal/queue"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Dispatcher consumes one queue on its own channel. Prefetch is 1 and acks are
// manual: a message is processed to completion before the next one is pulled,
// and a crash before the ack makes the broker redeliver it (at-least-once,
// duplicates tolerated). A decode failure or a category that does not belong
// to this queue is logged and dropped, never requeued.
type Dispatcher struct {
	binding queue.Binding
	client  *queue.Client
	sender  email.Sender
	logger  *zap.Logger
}

func New(binding queue.Binding, client *queue.Client, sender email.Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		binding: binding,
		client:  client,
		sender:  sender,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled or the channel closes.
func (d *Dispatcher) Run(ctx context.Context) error {
	ch, err := d.client.NewChannel()
	if err != nil {
		return fmt.Errorf("open consumer channel for %s: %w", d.binding.Queue, err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos on %s: %w", d.binding.Queue, err)
	}

	deliveries, err := ch.Consume(
		d.binding.Queue,
		"",    // consumer tag, broker-generated
		false, // auto-ack off, we ack after processing
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", d.binding.Queue, err)
	}

	d.logger.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				d.logger.Warn("delivery channel closed")
				return nil
			}
			d.handle(ctx, msg)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, msg amqp.Delivery) {
	var m models.NotificationMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		d.logger.Error("dropping undecodable message", zap.Error(err))
		d.nack(msg)
		return
	}
	if m.Category != d.binding.Category {
		// Exact-match bindings make this unreachable in normal operation.
		d.logger.Error("dropping message routed to wrong queue",
			zap.String("notification_id", m.ID),
			zap.String("category", string(m.Category)),
		)
		d.nack(msg)
		return
	}

	if err := d.Deliver(ctx, &m); err != nil {
		// Delivery failures do not block the queue; the message is dropped.
		d.logger.Error("delivery failed, message dropped",
			zap.String("notification_id", m.ID),
			zap.Error(err),
		)
	}
	if err := msg.Ack(false); err != nil {
		d.logger.Warn("ack failed", zap.String("notification_id", m.ID), zap.Error(err))
	}
}

func (d *Dispatcher) nack(msg amqp.Delivery) {
	if err := msg.Nack(false, false); err != nil {
		d.logger.Warn("nack failed", zap.Error(err))
	}
}

// Deliver performs the domain-specific delivery step for one message.
func (d *Dispatcher) Deliver(ctx context.Context, m *models.NotificationMessage) error {
	log := d.logger.With(
		zap.String("notification_id", m.ID),
		zap.String("user_id", m.UserID),
		zap.String("correlation_id", m.CorrelationID),
	)

	switch m.Category {
	case models.CategoryOrder:
		if detail, ok := m.Detail.(models.OrderDetail); ok {
			log = log.With(
				zap.String("order_id", detail.OrderID),
				zap.String("restaurant", detail.RestaurantName),
				zap.Float64("total_amount", detail.TotalAmount),
			)
		}
		log.Info("order notification delivered", zap.String("subject", m.Subject))
		return nil
	case models.CategoryLibrary:
		if detail, ok := m.Detail.(models.LibraryDetail); ok {
			log = log.With(zap.String("book_title", detail.BookTitle))
		}
		log.Info("library notification delivered", zap.String("subject", m.Subject))
		return nil
	case models.CategoryHousing:
		if detail, ok := m.Detail.(models.HousingDetail); ok {
			log = log.With(zap.String("room_number", detail.RoomNumber))
		}
		log.Info("housing notification delivered", zap.String("subject", m.Subject))
		return nil
	case models.CategoryEmail:
		if err := d.sender.Send(ctx, m.Email, m.Subject, m.Body); err != nil {
			return fmt.Errorf("send email to %s: %w", m.Email, err)
		}
		log.Info("email notification delivered", zap.String("to", m.Email))
		return nil
	default:
		return models.ErrInvalidCategory
	}
}
