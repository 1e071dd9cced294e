package notification

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

func newQueue(size, workers int) *Queue {
	return NewQueue(config.Config{Notification: config.Notification{
		QueueSize: size,
		Workers:   workers,
		Timeout:   time.Second,
	}}, zap.NewNop())
}

func TestQueueRunsTasksAndDrainsOnStop(t *testing.T) {
	q := newQueue(16, 2)
	require.NoError(t, q.Start(context.Background()))

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.True(t, q.Submit("count", func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	require.NoError(t, q.Stop(context.Background()))
	assert.EqualValues(t, 10, ran.Load())
	assert.False(t, q.Submit("late", func(context.Context) error { return nil }))
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := newQueue(1, 1)

	assert.True(t, q.Submit("first", func(context.Context) error { return nil }))
	assert.False(t, q.Submit("second", func(context.Context) error { return nil }))
	require.NoError(t, q.Stop(context.Background()))
}

func TestQueueRecoversPanicsAndAppliesTimeout(t *testing.T) {
	q := newQueue(4, 1)
	require.NoError(t, q.Start(context.Background()))

	var deadline atomic.Bool
	var after atomic.Bool
	q.Submit("boom", func(context.Context) error { panic("kaboom") })
	q.Submit("deadline", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		deadline.Store(ok)
		return nil
	})
	q.Submit("after", func(context.Context) error {
		after.Store(true)
		return nil
	})
	require.NoError(t, q.Stop(context.Background()))

	assert.True(t, deadline.Load())
	assert.True(t, after.Load())
}

func TestQueueRunFailsPanickingTask(t *testing.T) {
	q := newQueue(1, 1)
	err := q.run(task{name: "p", run: func(context.Context) error { panic("x") }})
	assert.ErrorContains(t, err, "panicked")
}
