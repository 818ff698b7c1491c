// README: RabbitMQ connection with retry on startup; publishes audit events to a topic exchange.
package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mimoreirac/pi-tercero/internal/logging"
)

const (
	amqpMaxAttempts    = 5
	amqpPublishTimeout = 5 * time.Second
)

var ErrChannelClosed = errors.New("rabbitmq channel not available")

type RabbitMQ struct {
	url      string
	exchange string
	log      logging.Logger

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewRabbitMQ dials url with backoff and declares exchange as a durable topic exchange.
func NewRabbitMQ(ctx context.Context, url, exchange string, log logging.Logger) (*RabbitMQ, error) {
	mq := &RabbitMQ{url: url, exchange: exchange, log: log}

	delay := time.Second
	for attempt := 1; attempt <= amqpMaxAttempts; attempt++ {
		err := mq.connect()
		if err == nil {
			log.Info(ctx, "rabbitmq connected", "exchange", exchange, "attempt", attempt)
			return mq, nil
		}
		log.Warn(ctx, "rabbitmq connection attempt failed", "attempt", attempt, "err", err)
		if attempt == amqpMaxAttempts {
			return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", amqpMaxAttempts, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay = min(delay*2, 10*time.Second)
		}
	}
	return nil, errors.New("rabbitmq: retry loop exited without result")
}

func (mq *RabbitMQ) connect() error {
	conn, err := amqp.Dial(mq.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(mq.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", mq.exchange, err)
	}

	mq.mu.Lock()
	mq.conn = conn
	mq.ch = ch
	mq.mu.Unlock()
	return nil
}

// Publish sends a persistent JSON message to the configured exchange.
func (mq *RabbitMQ) Publish(ctx context.Context, routingKey string, body []byte) error {
	mq.mu.RLock()
	ch := mq.ch
	closed := mq.closed
	mq.mu.RUnlock()
	if ch == nil || closed {
		return ErrChannelClosed
	}

	ctx, cancel := context.WithTimeout(ctx, amqpPublishTimeout)
	defer cancel()
	return ch.PublishWithContext(ctx, mq.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (mq *RabbitMQ) Close() {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.closed {
		return
	}
	mq.closed = true
	if mq.ch != nil {
		_ = mq.ch.Close()
	}
	if mq.conn != nil {
		_ = mq.conn.Close()
	}
}
