package assistant

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

var (
	responderTracer = otel.Tracer("github.com/Additional-Code/tenzai/assistant")
	responderMeter  = otel.Meter("github.com/Additional-Code/tenzai/assistant")
)

// Responder answers free-form questions, degrading to FallbackMessage on any failure.
type Responder struct {
	generator Generator
	enabled   bool
	logger    *zap.Logger
	fallbacks metric.Int64Counter
}

// NewResponder picks the generator named by AI_PROVIDER.
func NewResponder(cfg config.Config, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	var gen Generator
	enabled := true
	switch cfg.AI.Provider {
	case config.AIProviderMock:
		gen = MockGenerator{}
	default:
		gen = NewOpenRouterGenerator(cfg.AI)
		enabled = cfg.AI.APIKey != ""
	}
	if !enabled {
		logger.Info("model api key not set; assistant answers with fallback")
	}
	return newResponder(gen, enabled, logger)
}

// NewResponderWith wraps an explicit generator.
func NewResponderWith(gen Generator, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newResponder(gen, gen != nil, logger)
}

func newResponder(gen Generator, enabled bool, logger *zap.Logger) *Responder {
	fallbacks, _ := responderMeter.Int64Counter("assistant.fallbacks")
	return &Responder{generator: gen, enabled: enabled, logger: logger, fallbacks: fallbacks}
}

// Respond never fails: errors, timeouts and empty answers all yield FallbackMessage.
func (r *Responder) Respond(ctx context.Context, text, userID string) string {
	if !r.enabled {
		r.fallback(ctx, "disabled")
		return FallbackMessage
	}

	ctx, span := responderTracer.Start(ctx, "assistant.Respond", trace.WithAttributes(attribute.Int("message.length", len(text))))
	defer span.End()

	answer, err := r.generator.Complete(ctx, SystemPrompt, text)
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("model call failed; using fallback", zap.String("user_id", userID), zap.Error(err))
		r.fallback(ctx, "error")
		return FallbackMessage
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		r.fallback(ctx, "empty")
		return FallbackMessage
	}
	return answer
}

func (r *Responder) fallback(ctx context.Context, reason string) {
	if r.fallbacks != nil {
		r.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}
