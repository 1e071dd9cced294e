package webhook

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/line"
	"github.com/Additional-Code/tenzai/internal/service/conversation"
)

// Module wires webhook handlers.
var Module = fx.Options(
	fx.Provide(func(client *line.Client, events *conversation.Handler, logger *zap.Logger) *Handler {
		return NewHandler(client, events, logger)
	}),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)
