package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	exchangeName = "mediagen.direct"
	exchangeType = "direct"
	routingKey   = "generate"

	workQueueName  = "generation_tasks"
	retryQueueName = "generation_tasks.retry"
	deadLetterName = "dead_letter_queue"
	dlxName        = "mediagen.dlx"

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 30 * time.Second

	publishTimeout = 5 * time.Second
)

var _ Publisher = (*rabbitPublisher)(nil)

type rabbitPublisher struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
	mu      sync.RWMutex
	closed  bool
}

// NewRabbitMQPublisher creates a RabbitMQ publisher and declares the full
// topology: the work exchange and queue, the dead-letter pair, and the
// retry queue whose expired messages dead-letter back onto the work
// exchange (broker-side delayed delivery).
func NewRabbitMQPublisher(url string, logger *zap.Logger) (Publisher, error) {
	p := &rabbitPublisher{
		url:    url,
		logger: logger,
	}

	if err := p.connect(); err != nil {
		return nil, err
	}

	go p.watchConnection()

	return p, nil
}

// declareTopology sets up exchanges and queues on ch. Declarations are
// idempotent; both the publisher and the consumer run this so either
// process can start first.
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(exchangeName, exchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(dlxName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare DLX: %w", err)
	}

	if _, err := ch.QueueDeclare(deadLetterName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare DLQ: %w", err)
	}
	if err := ch.QueueBind(deadLetterName, "", dlxName, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind DLQ: %w", err)
	}

	workArgs := amqp.Table{
		"x-dead-letter-exchange": dlxName,
		"x-queue-type":           "quorum",
	}
	if _, err := ch.QueueDeclare(workQueueName, true, false, false, false, workArgs); err != nil {
		return fmt.Errorf("rabbitmq: declare work queue: %w", err)
	}
	if err := ch.QueueBind(workQueueName, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind work queue: %w", err)
	}

	// The retry queue has no consumers. Messages published here with a
	// per-message TTL expire and are dead-lettered back to the work
	// exchange, arriving on the work queue after the backoff delay.
	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    exchangeName,
		"x-dead-letter-routing-key": routingKey,
	}
	if _, err := ch.QueueDeclare(retryQueueName, true, false, false, false, retryArgs); err != nil {
		return fmt.Errorf("rabbitmq: declare retry queue: %w", err)
	}

	return nil
}

func (p *rabbitPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq: channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.channel = ch
	p.mu.Unlock()

	p.logger.Info("RabbitMQ publisher initialized",
		zap.String("exchange", exchangeName),
		zap.String("queue", workQueueName),
	)

	return nil
}

// watchConnection monitors the connection and reconnects on failure.
func (p *rabbitPublisher) watchConnection() {
	for {
		p.mu.RLock()
		if p.closed {
			p.mu.RUnlock()
			return
		}
		conn := p.conn
		p.mu.RUnlock()

		if conn == nil {
			time.Sleep(reconnectDelay)
			continue
		}

		reason, ok := <-conn.NotifyClose(make(chan *amqp.Error))
		if !ok {
			return
		}

		p.logger.Warn("RabbitMQ connection lost, reconnecting...",
			zap.String("reason", reason.Error()),
		)

		delay := reconnectDelay
		for {
			p.mu.RLock()
			if p.closed {
				p.mu.RUnlock()
				return
			}
			p.mu.RUnlock()

			time.Sleep(delay)

			if err := p.connect(); err != nil {
				p.logger.Warn("RabbitMQ reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
				delay = delay * 2
				if delay > maxReconnectDelay {
					delay = maxReconnectDelay
				}
				continue
			}

			p.logger.Info("RabbitMQ reconnected successfully")
			break
		}
	}
}

func (p *rabbitPublisher) Publish(ctx context.Context, msg Message) error {
	return p.publish(ctx, exchangeName, routingKey, msg, 0)
}

func (p *rabbitPublisher) PublishDelayed(ctx context.Context, msg Message, delay time.Duration) error {
	if delay <= 0 {
		return p.Publish(ctx, msg)
	}
	// Published straight to the retry queue via the default exchange.
	return p.publish(ctx, "", retryQueueName, msg, delay)
}

func (p *rabbitPublisher) publish(ctx context.Context, exchange, key string, msg Message, ttl time.Duration) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal message: %w", err)
	}

	p.mu.RLock()
	ch := p.channel
	p.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("rabbitmq: channel not available (reconnecting)")
	}

	confirm := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.JobID.String(),
		Timestamp:    time.Now(),
		Body:         body,
	}
	if ttl > 0 {
		pub.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
	}

	if err := ch.PublishWithContext(publishCtx, exchange, key, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}

	select {
	case ack := <-confirm:
		if !ack.Ack {
			return fmt.Errorf("rabbitmq: broker nacked message (job_id=%s)", msg.JobID)
		}
	case <-publishCtx.Done():
		return fmt.Errorf("rabbitmq: publish confirmation timeout (job_id=%s)", msg.JobID)
	}

	p.logger.Debug("Published job to RabbitMQ",
		zap.String("job_id", msg.JobID.String()),
		zap.Int("attempt", msg.Attempt),
		zap.Duration("delay", ttl),
	)
	return nil
}

// Healthy reports whether the broker connection is currently usable.
func (p *rabbitPublisher) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed && p.conn != nil && !p.conn.IsClosed()
}

func (p *rabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
