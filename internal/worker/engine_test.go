package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/messaging"
)

func newEngine(client messaging.Client, regs ...HandlerRegistration) *Engine {
	cfg := config.Config{}
	cfg.Messaging.Enabled = true
	cfg.Messaging.Workers.Enabled = true
	cfg.Messaging.Workers.Concurrency = 2
	return NewEngine(Params{Client: client, Logger: zap.NewNop(), Config: cfg, Registrations: regs})
}

func TestDispatchFansOutToEveryHandler(t *testing.T) {
	var a, b int32
	e := newEngine(messaging.Noop("orders.events"),
		HandlerRegistration{Topic: "orders.events", Handler: func(context.Context, messaging.Message) error { atomic.AddInt32(&a, 1); return nil }},
		HandlerRegistration{Topic: "orders.events", Handler: func(context.Context, messaging.Message) error { atomic.AddInt32(&b, 1); return nil }},
		HandlerRegistration{Topic: "orders.events"},
	)

	require.NoError(t, e.Dispatch(context.Background(), messaging.Message{Topic: "orders.events"}, 0))
	assert.EqualValues(t, 1, a)
	assert.EqualValues(t, 1, b)
}

func TestDispatchRetriesThenReports(t *testing.T) {
	var calls int32
	e := newEngine(messaging.Noop("t"), HandlerRegistration{Topic: "t", Handler: func(context.Context, messaging.Message) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}})

	err := e.Dispatch(context.Background(), messaging.Message{Topic: "t"}, 0)
	assert.Error(t, err)
	assert.EqualValues(t, handlerAttempts, calls)
}

func TestDispatchRecoversPanics(t *testing.T) {
	var calls int32
	e := newEngine(messaging.Noop("t"), HandlerRegistration{Topic: "t", Handler: func(context.Context, messaging.Message) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("first delivery")
		}
		return nil
	}})

	assert.NoError(t, e.Dispatch(context.Background(), messaging.Message{Topic: "t"}, 0))
	assert.EqualValues(t, 2, calls)
}

func TestUnknownTopicIsIgnored(t *testing.T) {
	e := newEngine(messaging.Noop("t"))
	assert.NoError(t, e.Dispatch(context.Background(), messaging.Message{Topic: "other"}, 0))
}

func TestEngineConsumesMemoryBus(t *testing.T) {
	bus := messaging.NewMemory("orders.events", 8)
	got := make(chan string, 1)
	e := newEngine(bus, HandlerRegistration{Topic: "orders.events", Handler: func(_ context.Context, msg messaging.Message) error {
		got <- string(msg.Key)
		return nil
	}})

	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, e.Stop(ctx))
	})

	require.NoError(t, bus.Publish(context.Background(), []byte("ORD-20250101-0001"), []byte(`{}`)))
	select {
	case key := <-got:
		assert.Equal(t, "ORD-20250101-0001", key)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not consumed")
	}
}

func TestStartSkipsWhenDisabled(t *testing.T) {
	e := NewEngine(Params{Client: messaging.Noop("t"), Logger: zap.NewNop(), Config: config.Config{}})
	require.NoError(t, e.Start(context.Background()))
	assert.NoError(t, e.Stop(context.Background()))
}
