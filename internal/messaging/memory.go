package messaging

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusFull is returned by the in-memory bus when its buffer is exhausted.
var ErrBusFull = errors.New("messaging: memory bus full")

// Memory is an in-process bus for single-binary deployments and tests.
// Every consumer competes for the same buffered stream, like a consumer group.
type Memory struct {
	topic string
	ch    chan Message

	mu     sync.Mutex
	offset int64
}

// NewMemory creates a bus holding up to size undelivered messages.
func NewMemory(topic string, size int) *Memory {
	if size <= 0 {
		size = 1
	}
	return &Memory{topic: topic, ch: make(chan Message, size)}
}

// Publish enqueues a copy of the message without blocking.
func (m *Memory) Publish(ctx context.Context, key []byte, value []byte) error {
	m.mu.Lock()
	m.offset++
	msg := Message{
		Topic:   m.topic,
		Key:     append([]byte(nil), key...),
		Value:   append([]byte(nil), value...),
		Headers: map[string]string{"content-type": "application/json"},
		Offset:  m.offset,
		Time:    time.Now().UTC(),
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.ch <- msg:
		return nil
	default:
		return ErrBusFull
	}
}

// Consume delivers messages to handler until ctx is cancelled. Handler errors are dropped
// after the call, matching an uncommitted-but-skipped Kafka message.
func (m *Memory) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-m.ch:
			_ = handler(ctx, msg)
		}
	}
}

// Topic returns the bus topic.
func (m *Memory) Topic() string { return m.topic }

// Pending reports how many messages wait for a consumer.
func (m *Memory) Pending() int { return len(m.ch) }
