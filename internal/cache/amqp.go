package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// InvalidationExchange is the fanout exchange every replica binds to.
const InvalidationExchange = "cache.invalidate"

// AMQPBus broadcasts invalidations over a RabbitMQ fanout exchange. Each
// replica consumes from its own exclusive, auto-deleted queue.
type AMQPBus struct {
	conn *amqp.Connection

	mu     sync.Mutex
	ch     *amqp.Channel
	closed bool
}

// DialAMQP connects and declares the exchange, retrying until ctx ends or
// attempts run out.
func DialAMQP(ctx context.Context, url string, attempts int) (*AMQPBus, error) {
	delay := time.Second
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		bus, err := dialOnce(url)
		if err == nil {
			logrus.WithField("attempt", attempt).Info("connected to rabbitmq")
			return bus, nil
		}
		lastErr = err
		logrus.WithError(err).WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": attempts,
		}).Warn("rabbitmq connection failed")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay = min(delay*2, 30*time.Second)
		}
	}
	return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", attempts, lastErr)
}

func dialOnce(url string) (*AMQPBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		InvalidationExchange,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare %s: %w", InvalidationExchange, err)
	}
	return &AMQPBus{conn: conn, ch: ch}, nil
}

func (b *AMQPBus) Publish(ctx context.Context, msg Invalidation) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("rabbitmq channel closed")
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return b.ch.PublishWithContext(publishCtx, InvalidationExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   msg.At,
	})
}

// Subscribe binds a private queue to the exchange and feeds every message to
// handle on a background goroutine until ctx ends.
func (b *AMQPBus) Subscribe(ctx context.Context, handle func(Invalidation)) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare invalidation queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", InvalidationExchange, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("bind invalidation queue: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					logrus.Warn("invalidation consumer stopped")
					return
				}
				var msg Invalidation
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					logrus.WithError(err).Warn("malformed cache invalidation")
					continue
				}
				handle(msg)
			}
		}
	}()
	return nil
}

func (b *AMQPBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	_ = b.ch.Close()
	return b.conn.Close()
}
