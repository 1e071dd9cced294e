package admin

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Additional-Code/tenzai/internal/notification"
	"github.com/Additional-Code/tenzai/internal/service/schema"
)

// Module wires admin handlers.
var Module = fx.Options(
	fx.Provide(func(i *schema.Inspector, d *notification.Dispatcher) *Handler {
		return NewHandler(i, d)
	}),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)
