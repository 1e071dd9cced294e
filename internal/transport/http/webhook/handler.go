package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/line"
	"github.com/Additional-Code/tenzai/internal/presentation/http/response"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/tenzai/transport/http/webhook")

const (
	signatureHeader = "X-Line-Signature"
	maxBodyBytes    = 1 << 20
)

// Verifier checks webhook signatures.
type Verifier interface {
	Verify(body []byte, signature string) bool
}

// EventHandler processes verified webhook payloads.
type EventHandler interface {
	HandleEvents(ctx context.Context, payload line.Payload) int
}

// Handler receives messaging platform webhooks.
type Handler struct {
	verifier Verifier
	events   EventHandler
	logger   *zap.Logger
}

// NewHandler constructs a webhook Handler.
func NewHandler(verifier Verifier, events EventHandler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{verifier: verifier, events: events, logger: logger}
}

// Register mounts webhook routes.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/webhook")
	g.POST("/line", h.line)
	g.POST("/fb", h.placeholder("fb"))
	g.POST("/ig", h.placeholder("ig"))
}

func (h *Handler) line(c echo.Context) error {
	b := response.New(c)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return b.WithError(errorbank.BadRequest("unreadable body", errorbank.WithCause(err))).Build()
	}
	signature := c.Request().Header.Get(signatureHeader)
	if signature == "" {
		return b.WithError(errorbank.BadRequest("missing signature")).Build()
	}
	if !h.verifier.Verify(body, signature) {
		h.logger.Warn("invalid webhook signature", zap.String("remote_ip", c.RealIP()))
		return b.WithError(errorbank.Unauthorized("invalid signature")).Build()
	}

	var payload line.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid JSON", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "webhook.line")
	defer span.End()
	span.SetAttributes(attribute.Int("webhook.events", len(payload.Events)))

	processed := h.events.HandleEvents(ctx, payload)
	h.logger.Info("webhook processed", zap.Int("events", len(payload.Events)), zap.Int("processed", processed))

	return b.WithData(map[string]any{
		"status":           "ok",
		"processed_events": processed,
	}).Build()
}

func (h *Handler) placeholder(platform string) echo.HandlerFunc {
	return func(c echo.Context) error {
		h.logger.Info("webhook received for unsupported platform", zap.String("platform", platform))
		return response.New(c).WithStatus(http.StatusOK).WithData(map[string]any{
			"status": platform + " webhook not implemented yet",
		}).Build()
	}
}
