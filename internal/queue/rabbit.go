package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eduka/notification-service/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Client holds the broker connection and the channel used for publishing
// (amqp091 serializes concurrent publishes on a channel). Consumers get their
// own channels via NewChannel so each queue's Qos and ack state stay isolated
// from the publisher and from each other.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     config.RabbitMQConfig
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewClient(cfg config.RabbitMQConfig, logger *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	logger.Info("connected to rabbitmq", zap.String("exchange", cfg.Exchange))
	return &Client{
		conn:    conn,
		channel: channel,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// NewChannel opens a dedicated channel, one per consumer.
func (c *Client) NewChannel() (*amqp.Channel, error) {
	return c.conn.Channel()
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.conn != nil && !c.conn.IsClosed()
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if err := c.channel.Close(); err != nil {
		c.logger.Warn("failed to close channel", zap.Error(err))
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Warn("failed to close connection", zap.Error(err))
	}
}

// Publish sends a raw payload to the exchange with the given routing key,
// persistent delivery mode. Returns once the broker has accepted the message.
func (c *Client) Publish(ctx context.Context, routingKey string, body []byte, messageID string) error {
	err := c.channel.PublishWithContext(
		ctx,
		c.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", routingKey, err)
	}
	return nil
}

// DeclareTopology sets up the topic exchange, one durable queue per category,
// and an exact-match binding per queue. Layout is fixed at startup.
func (c *Client) DeclareTopology() error {
	if err := c.channel.ExchangeDeclare(
		c.cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.cfg.Exchange, err)
	}
	for _, b := range Bindings() {
		if _, err := c.channel.QueueDeclare(
			b.Queue,
			true,  // durable: messages survive a broker restart
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.Queue, err)
		}
		if err := c.channel.QueueBind(
			b.Queue,
			b.RoutingKey,
			c.cfg.Exchange,
			false,
			nil,
		); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.Queue, b.RoutingKey, err)
		}
	}
	c.logger.Info("broker topology declared", zap.Int("queues", len(Bindings())))
	return nil
}
