// Package messaging carries order lifecycle events between the API and the worker.
package messaging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

// Drivers accepted by MESSAGING_DRIVER.
const (
	DriverNoop   = "noop"
	DriverMemory = "memory"
	DriverKafka  = "kafka"
)

// Message represents a message consumed from the bus.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// Handler processes an inbound message.
type Handler func(context.Context, Message) error

// Client is the pluggable messaging abstraction.
type Client interface {
	Publish(ctx context.Context, key []byte, value []byte) error
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

// Module wires the messaging client.
var Module = fx.Provide(NewClient)

// NewClient builds a messaging client based on configuration.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	topic := cfg.Messaging.Kafka.Topic
	if !cfg.Messaging.Enabled {
		logger.Info("messaging disabled; order events are not published")
		return Noop(topic), nil
	}

	switch cfg.Messaging.Driver {
	case DriverNoop, "":
		return Noop(topic), nil
	case DriverMemory:
		return NewMemory(topic, 256), nil
	case DriverKafka:
		return newKafkaClient(lc, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
}

type noopClient struct {
	topic string
}

// Noop returns a client that drops published events and blocks consumers until cancelled.
func Noop(topic string) Client { return noopClient{topic: topic} }

func (n noopClient) Publish(context.Context, []byte, []byte) error { return nil }

func (n noopClient) Consume(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (n noopClient) Topic() string { return n.topic }
