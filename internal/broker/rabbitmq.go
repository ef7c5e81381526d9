// Package broker publishes domain events to RabbitMQ.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectInterval = 10 * time.Second

// ErrClosed is returned when publishing on a closed connection.
var ErrClosed = errors.New("rabbitmq connection is closed")

// RabbitMQ publishes JSON messages to a topic exchange.
type RabbitMQ struct {
	ctx      context.Context
	url      string
	exchange string

	mu           sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
}

// New connects to RabbitMQ and declares the topic exchange.
// ctx bounds background reconnection attempts.
func New(ctx context.Context, url, exchange string) (*RabbitMQ, error) {
	r := &RabbitMQ{ctx: ctx, url: url, exchange: exchange}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return r, nil
}

// Publish marshals payload and publishes it with the given routing key.
func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	r.mu.Lock()
	conn, ch := r.conn, r.ch
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() || ch == nil || ch.IsClosed() {
		go r.reconnect()
		return ErrClosed
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// IsAlive reports whether the connection and channel are open.
func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return false
	}
	return r.ch != nil && !r.ch.IsClosed()
}

// Close closes the channel and connection.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(r.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return err
	}

	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) reconnect() {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(reconnectInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			if err := r.connect(); err == nil {
				log.Printf("rabbitmq reconnected")
				return
			}
			log.Printf("rabbitmq failed to reconnect")
		case <-r.ctx.Done():
			return
		}
	}
}
