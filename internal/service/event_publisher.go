// Package service holds outbound integrations used by the HTTP layer.
// Publishing errors are returned so callers can log and carry on without
// interrupting the request.
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/miniapp-auth/internal/queue"
)

// EventPublisher publishes login events to RabbitMQ over one long-lived
// connection.  A fresh channel is opened per publish since amqp channels
// are not safe for concurrent use.
type EventPublisher struct {
    url  string
    mu   sync.Mutex
    conn *amqp.Connection
}

// NewEventPublisher dials the broker.  The connection is re-established
// lazily if it drops.
func NewEventPublisher(url string) (*EventPublisher, error) {
    p := &EventPublisher{url: url}
    if _, err := p.connection(); err != nil {
        return nil, err
    }
    return p, nil
}

func (p *EventPublisher) connection() (*amqp.Connection, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn != nil && !p.conn.IsClosed() {
        return p.conn, nil
    }
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("rabbitmq: dial: %w", err)
    }
    p.conn = conn
    return conn, nil
}

// PublishLogin sends ev to the user.login queue as a persistent message.
func (p *EventPublisher) PublishLogin(ctx context.Context, ev queue.LoginEvent) error {
    conn, err := p.connection()
    if err != nil {
        return err
    }
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("rabbitmq: channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // Idempotent; durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        queue.LoginQueueName, // name
        true,                 // durable
        false,                // autoDelete
        false,                // exclusive
        false,                // noWait
        nil,                  // args
    ); err != nil {
        return fmt.Errorf("rabbitmq: queue declare: %w", err)
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("rabbitmq: marshal event: %w", err)
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue.LoginQueueName, false, false, pub); err != nil {
        return fmt.Errorf("rabbitmq: publish: %w", err)
    }
    return nil
}

// Close releases the broker connection.
func (p *EventPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil || p.conn.IsClosed() {
        return nil
    }
    return p.conn.Close()
}
