package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	maxConsumerReconnectDelay  = 30 * time.Second
	baseConsumerReconnectDelay = 1 * time.Second
)

// Consumer listens to the work queue and dispatches Delivery values (with
// ACK callbacks) to a channel consumed by the worker pool.
type Consumer struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
	out     chan<- *Delivery

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
}

// NewConsumer creates a RabbitMQ consumer with manual acknowledgement.
// Each delivery is wrapped in a Delivery with Ack/Nack callbacks that the
// worker pool calls after processing finishes.
func NewConsumer(url string, out chan<- *Delivery, logger *zap.Logger) (*Consumer, error) {
	c := &Consumer{
		url:     url,
		logger:  logger,
		out:     out,
		closeCh: make(chan struct{}),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

// connect establishes the AMQP connection and channel with prefetch=1.
func (c *Consumer) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	// Prefetch 1: one unacknowledged message per consumer, so a slow
	// generation never hoards queued work.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("amqp qos: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	return nil
}

// Start begins consuming messages. It blocks until the context is
// cancelled. On connection loss it reconnects with exponential backoff.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-c.closeCh:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		c.logger.Warn("AMQP consumer lost connection, reconnecting...", zap.Error(err))

		for attempt := 0; ; attempt++ {
			select {
			case <-c.closeCh:
				return nil
			case <-ctx.Done():
				return nil
			default:
			}

			delay := time.Duration(math.Min(
				float64(baseConsumerReconnectDelay)*math.Pow(2, float64(attempt)),
				float64(maxConsumerReconnectDelay),
			))
			c.logger.Info("Reconnect attempt",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			time.Sleep(delay)

			if err := c.connect(); err != nil {
				c.logger.Error("Reconnect failed", zap.Error(err))
				continue
			}

			c.logger.Info("Reconnected to RabbitMQ")
			break
		}
	}
}

// consume runs one consume session until the delivery channel closes or
// ctx is cancelled.
func (c *Consumer) consume(ctx context.Context) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	if ch == nil {
		return fmt.Errorf("channel is nil")
	}

	deliveries, err := ch.Consume(
		workQueueName,
		"",    // auto-generated consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	c.logger.Info("AMQP consumer started", zap.String("queue", workQueueName))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("AMQP consumer stopping (context cancelled)")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			var msg Message
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				c.logger.Error("Failed to unmarshal message",
					zap.Error(err),
					zap.String("body", string(delivery.Body)),
				)
				delivery.Nack(false, false) // reject → DLQ
				continue
			}
			if msg.Attempt < 1 {
				msg.Attempt = 1
			}

			c.logger.Debug("Received job from queue",
				zap.String("job_id", msg.JobID.String()),
				zap.Int("attempt", msg.Attempt),
			)

			tag := delivery.DeliveryTag
			localCh := ch

			out := &Delivery{
				Message: msg,
				Ack: func() error {
					return localCh.Ack(tag, false)
				},
				Nack: func(requeue bool) error {
					return localCh.Nack(tag, false, requeue)
				},
			}

			// Blocks when the pool is saturated; prefetch=1 turns that
			// into broker-side back-pressure.
			select {
			case c.out <- out:
			case <-ctx.Done():
				// Shutting down; requeue so the message is redelivered.
				delivery.Nack(false, true)
				return nil
			}
		}
	}
}

// Close gracefully shuts down the consumer.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closeCh)

	var firstErr error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
