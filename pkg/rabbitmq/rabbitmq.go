// Package rabbitmq publishes and consumes order lifecycle events.
package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/streadway/amqp"
)

// OrderEventsQueue is the durable queue all order events are routed to.
const OrderEventsQueue = "order_events"

// Event types carried in OrderEvent.Type.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusUpdated = "order.status_updated"
)

// OrderEvent is the JSON payload of every message on OrderEventsQueue.
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       uint      `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	UserID        *uint     `json:"userId,omitempty"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	TotalAmount   string    `json:"totalAmount"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the order events queue.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("rabbitmq connected", slog.String("queue", OrderEventsQueue))
	return &Client{conn: conn, channel: ch, logger: logger}, nil
}

func declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		OrderEventsQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare %s: %w", OrderEventsQueue, err)
	}
	return q, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing RabbitMQ client: %v", errs)
	}
	return nil
}

// PublishOrderEvent publishes event as a persistent JSON message.
func (c *Client) PublishOrderEvent(event OrderEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	err = c.channel.Publish(
		"",               // default exchange
		OrderEventsQueue, // routing key
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	c.logger.Debug("order event published",
		slog.String("type", event.Type),
		slog.String("order_number", event.OrderNumber))
	return nil
}

// ConsumeOrderEvents delivers every message on the queue to handler until the
// channel closes. Messages are acked on success; handler errors requeue the
// message once and drop it on redelivery. The returned channel is closed when
// consumption stops.
func (c *Client) ConsumeOrderEvents(handler func(OrderEvent) error) (<-chan struct{}, error) {
	if c.channel == nil {
		return nil, fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := declareQueue(c.channel)
	if err != nil {
		return nil, err
	}

	msgs, err := c.channel.Consume(
		queue.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			c.handleDelivery(msg, handler)
		}
	}()
	return done, nil
}

func (c *Client) handleDelivery(msg amqp.Delivery, handler func(OrderEvent) error) {
	log := c.logger.With(slog.Uint64("delivery_tag", msg.DeliveryTag))

	event, err := DecodeOrderEvent(msg.Body)
	if err == nil {
		err = handler(event)
	}
	if err != nil {
		log.Error("order event failed", slog.Any("error", err), slog.Bool("redelivered", msg.Redelivered))
		if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
			log.Error("nack failed", slog.Any("error", nackErr))
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		log.Error("ack failed", slog.Any("error", ackErr))
	}
}

// DecodeOrderEvent parses a message body into an OrderEvent.
func DecodeOrderEvent(body []byte) (OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("failed to decode order event: %w", err)
	}
	if event.Type == "" {
		return event, fmt.Errorf("order event has no type")
	}
	return event, nil
}

// LogOrderEvent is the default consumer handler: it records each event in the log.
func LogOrderEvent(logger *slog.Logger) func(OrderEvent) error {
	return func(event OrderEvent) error {
		logger.Info("order event",
			slog.String("type", event.Type),
			slog.Uint64("order_id", uint64(event.OrderID)),
			slog.String("order_number", event.OrderNumber),
			slog.String("status", event.Status),
			slog.String("payment_status", event.PaymentStatus),
			slog.String("total", event.TotalAmount),
		)
		return nil
	}
}
