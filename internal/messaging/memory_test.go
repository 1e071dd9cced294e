package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeliversInOrder(t *testing.T) {
	bus := NewMemory("orders.events", 4)
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, []byte("ORD-1"), []byte(`{"n":1}`)))
	require.NoError(t, bus.Publish(ctx, []byte("ORD-1"), []byte(`{"n":2}`)))
	assert.Equal(t, 2, bus.Pending())

	runCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	var got []string
	err := bus.Consume(runCtx, func(_ context.Context, msg Message) error {
		got = append(got, string(msg.Value))
		assert.Equal(t, "orders.events", msg.Topic)
		assert.Equal(t, "application/json", msg.Headers["content-type"])
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, got)
}

func TestMemoryRejectsWhenFull(t *testing.T) {
	bus := NewMemory("t", 1)
	require.NoError(t, bus.Publish(context.Background(), nil, []byte("a")))
	assert.ErrorIs(t, bus.Publish(context.Background(), nil, []byte("b")), ErrBusFull)
}

func TestNoopConsumeBlocksUntilCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Noop("t").Consume(ctx, nil), context.Canceled)
	assert.NoError(t, Noop("t").Publish(context.Background(), nil, nil))
}
