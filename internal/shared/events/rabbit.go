package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher publishes events to a RabbitMQ topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewRabbitPublisher connects to the broker and declares the exchange.
func NewRabbitPublisher(cfg config.BrokerConfig) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &RabbitPublisher{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

// Publish sends an event with the given routing key (e.g. "order.paid").
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Name, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

// Close closes the channel and connection.
func (p *RabbitPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// Health reports whether the broker connection is still open.
func (p *RabbitPublisher) Health() error {
	if p.conn.IsClosed() {
		return fmt.Errorf("broker connection closed")
	}
	return nil
}
