package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/messaging"
)

var workerMeter = otel.Meter("github.com/Additional-Code/tenzai/worker")

const (
	handlerAttempts = 3
	handlerBackoff  = 200 * time.Millisecond
	handlerTimeout  = 15 * time.Second
	maxLoopBackoff  = 30 * time.Second
)

// HandlerRegistration binds message topics to handlers.
type HandlerRegistration struct {
	Topic   string
	Handler messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine consumes the event bus and fans each message out to the handlers of its topic.
type Engine struct {
	client   messaging.Client
	logger   *zap.Logger
	cfg      config.Config
	handlers map[string][]messaging.Handler
	failed   metric.Int64Counter

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine constructs the worker Engine.
func NewEngine(p Params) *Engine {
	handlers := make(map[string][]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		if r.Topic == "" || r.Handler == nil {
			continue
		}
		handlers[r.Topic] = append(handlers[r.Topic], r.Handler)
	}

	failed, _ := workerMeter.Int64Counter("worker.messages.failed")
	return &Engine{
		client:   p.Client,
		logger:   p.Logger,
		cfg:      p.Config,
		handlers: handlers,
		failed:   failed,
	}
}

// Module wires the engine into Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.Hook{
			OnStart: engine.Start,
			OnStop:  engine.Stop,
		})
	}),
)

// Start launches the consumer goroutines when messaging and workers are enabled.
func (e *Engine) Start(context.Context) error {
	if !e.cfg.Messaging.Enabled || !e.cfg.Messaging.Workers.Enabled {
		e.logger.Info("worker engine disabled")
		return nil
	}
	if len(e.handlers) == 0 {
		e.logger.Info("worker engine has no handlers; skipping")
		return nil
	}

	concurrency := e.cfg.Messaging.Workers.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	for i := 0; i < concurrency; i++ {
		e.wg.Add(1)
		go func(id int) {
			defer e.wg.Done()
			e.consumeLoop(runCtx, id)
		}(i)
	}

	e.logger.Info("worker engine started", zap.Int("workers", concurrency), zap.String("topic", e.client.Topic()))
	return nil
}

// Stop cancels consumers and waits for in-flight messages.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		e.logger.Info("worker engine stopped")
		return nil
	}
}

func (e *Engine) consumeLoop(ctx context.Context, workerID int) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		err := e.client.Consume(ctx, func(msgCtx context.Context, msg messaging.Message) error {
			return e.Dispatch(msgCtx, msg, workerID)
		})
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		e.logger.Error("consume loop error", zap.Int("worker", workerID), zap.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < maxLoopBackoff {
			backoff *= 2
		}
	}
}

// Dispatch runs every handler registered for the message topic. Each handler is retried
// on error; the first handler that still fails is reported so the message is not committed.
func (e *Engine) Dispatch(ctx context.Context, msg messaging.Message, workerID int) error {
	handlers, ok := e.handlers[msg.Topic]
	if !ok {
		e.logger.Warn("no handler for topic", zap.String("topic", msg.Topic))
		return nil
	}

	e.logger.Debug("processing message",
		zap.String("topic", msg.Topic),
		zap.ByteString("key", msg.Key),
		zap.Int("worker", workerID),
	)

	var firstErr error
	for _, h := range handlers {
		if err := e.runWithRetry(ctx, h, msg); err != nil {
			e.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", msg.Topic)))
			e.logger.Error("message handler gave up",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (e *Engine) runWithRetry(ctx context.Context, h messaging.Handler, msg messaging.Message) error {
	backoff := retry.WithMaxRetries(handlerAttempts-1, retry.NewExponential(handlerBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := runSafely(ctx, h, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func runSafely(ctx context.Context, h messaging.Handler, msg messaging.Message) (err error) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, msg)
}
