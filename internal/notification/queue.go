package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

// ErrQueueFull is reported for tasks dropped because the buffer was full.
var ErrQueueFull = errors.New("notification queue full")

// TaskFunc is a unit of background work.
type TaskFunc func(ctx context.Context) error

type task struct {
	name string
	run  TaskFunc
}

// Queue runs fire-and-forget tasks on a fixed pool of workers. Submissions never
// block: when the buffer is full the task is dropped.
type Queue struct {
	mu      sync.RWMutex
	tasks   chan task
	closed  bool
	workers int
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
	started bool
}

// NewQueue builds an idle queue sized from configuration.
func NewQueue(cfg config.Config, logger *zap.Logger) *Queue {
	size := cfg.Notification.QueueSize
	if size <= 0 {
		size = 256
	}
	workers := cfg.Notification.Workers
	if workers <= 0 {
		workers = 1
	}
	timeout := cfg.Notification.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		tasks:   make(chan task, size),
		workers: workers,
		timeout: timeout,
		logger:  logger,
	}
}

// Submit enqueues fn. It reports false when the task was dropped.
func (q *Queue) Submit(name string, fn TaskFunc) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("notification queue closed; task dropped", zap.String("task", name))
		return false
	}
	select {
	case q.tasks <- task{name: name, run: fn}:
		return true
	default:
		q.logger.Warn("notification queue full; task dropped", zap.String("task", name))
		return false
	}
}

// Start launches the workers.
func (q *Queue) Start(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return nil
	}
	q.started = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.loop()
	}
	q.logger.Info("notification queue started", zap.Int("workers", q.workers))
	return nil
}

// Stop refuses new tasks and waits for queued ones to finish.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	started := q.started
	q.mu.Unlock()

	if !started {
		return nil
	}
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		q.logger.Info("notification queue stopped")
		return nil
	}
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for t := range q.tasks {
		if err := q.run(t); err != nil {
			q.logger.Warn("notification task failed", zap.String("task", t.name), zap.Error(err))
		}
	}
}

func (q *Queue) run(t task) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.run(ctx)
}
