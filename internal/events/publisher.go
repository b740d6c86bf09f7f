// Package events announces finished sync attempts on a RabbitMQ queue so that
// downstream consumers can refresh without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SyncEvent is the message body published after every sync attempt.
type SyncEvent struct {
	Dataset  string    `json:"dataset"`
	Status   string    `json:"status"`
	Count    int       `json:"count"`
	Message  string    `json:"message,omitempty"`
	SyncedAt time.Time `json:"syncedAt"`
}

// Publisher sends sync events to a durable queue on the default exchange.
// Each publish opens its own connection.
type Publisher struct {
	url   string
	queue string
}

func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

// PublishSync delivers one persistent JSON message.
func (p *Publisher) PublishSync(ctx context.Context, event SyncEvent) error {
	body, err := Encode(event)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.SyncedAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.queue, err)
	}
	return nil
}

// Encode renders the wire form of an event.
func Encode(event SyncEvent) ([]byte, error) {
	event.SyncedAt = event.SyncedAt.UTC()
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode sync event: %w", err)
	}
	return body, nil
}
