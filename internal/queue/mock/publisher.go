package mock

import (
	"context"
	"sync"
	"time"

	"github.com/abhishekpatel946/replicate-media-generation/internal/queue"
)

var _ queue.Publisher = (*Publisher)(nil)

// Publisher is a test double for queue.Publisher.
type Publisher struct {
	mu sync.Mutex

	PublishFn        func(ctx context.Context, msg queue.Message) error
	PublishDelayedFn func(ctx context.Context, msg queue.Message, delay time.Duration) error

	// Recorded calls for assertions.
	Published []queue.Message
	Delayed   []DelayedPublish
}

type DelayedPublish struct {
	Message queue.Message
	Delay   time.Duration
}

func (m *Publisher) Publish(ctx context.Context, msg queue.Message) error {
	m.mu.Lock()
	m.Published = append(m.Published, msg)
	m.mu.Unlock()
	if m.PublishFn != nil {
		return m.PublishFn(ctx, msg)
	}
	return nil
}

func (m *Publisher) PublishDelayed(ctx context.Context, msg queue.Message, delay time.Duration) error {
	m.mu.Lock()
	m.Delayed = append(m.Delayed, DelayedPublish{Message: msg, Delay: delay})
	m.mu.Unlock()
	if m.PublishDelayedFn != nil {
		return m.PublishDelayedFn(ctx, msg, delay)
	}
	return nil
}

func (m *Publisher) Healthy() bool { return true }

func (m *Publisher) Close() error { return nil }
