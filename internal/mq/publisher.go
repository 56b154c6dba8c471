// Package mq publishes run events to a RabbitMQ topic exchange.
package mq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// Routing keys of published events
const (
	KeyRunStarted    = "run.started"
	KeyTestCompleted = "test.completed"
	KeyRunCompleted  = "run.completed"
)

// Publisher wraps an AMQP connection/channel for event publishing.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string

	// engine events arrive from several goroutines
	mu sync.Mutex
}

// NewPublisher connects to RabbitMQ and declares the exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Close closes the AMQP channel and connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Publish emits a JSON event to the configured exchange.
func (p *Publisher) Publish(routingKey string, payload map[string]any) error {
	body, err := encode(routingKey, payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Publish(
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func encode(routingKey string, payload map[string]any) ([]byte, error) {
	payload["routing_key"] = routingKey
	payload["ts_utc"] = time.Now().UTC().Format(time.RFC3339Nano)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return body, nil
}
