package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Apurer/order-engine/internal/domains/notifications/domain"
	"github.com/Apurer/order-engine/internal/domains/notifications/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

var _ ports.Notifier = (*Notifier)(nil)

// DefaultExchange receives every order notification; routing keys are "order.<kind>".
const DefaultExchange = "order.notifications"

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Notifier publishes notifications to a RabbitMQ topic exchange.
type Notifier struct {
	conn     *amqp091.Connection
	exchange string
	open     func() (channel, error)
}

// Dial connects to RabbitMQ and declares the exchange.
func Dial(url, exchange string) (*Notifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	n := &Notifier{conn: conn, exchange: exchange}
	n.open = func() (channel, error) { return conn.Channel() }
	return n, nil
}

func newNotifier(exchange string, open func() (channel, error)) *Notifier {
	return &Notifier{exchange: exchange, open: open}
}

func (n *Notifier) Notify(ctx context.Context, msg domain.Message) error {
	if n == nil || n.open == nil {
		return errors.New("rabbitmq notifier not configured")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	ch, err := n.open()
	if err != nil {
		return failure.External("rabbitmq", fmt.Errorf("open channel: %w", err))
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, n.exchange, "order."+string(msg.Kind), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.OrderID + ":" + string(msg.Kind),
		Timestamp:    msg.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return failure.External("rabbitmq", err)
	}
	return nil
}

func (n *Notifier) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
