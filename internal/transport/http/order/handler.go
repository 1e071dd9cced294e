package order

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/tenzai/internal/dto"
	"github.com/Additional-Code/tenzai/internal/presentation/http/response"
	service "github.com/Additional-Code/tenzai/internal/service/order"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/tenzai/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes under /api/orders.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/api/orders")
	g.POST("/create", h.create)
	g.GET("/today", h.today)
	g.GET("/:number", h.get)
	g.PATCH("/:number/status", h.updateStatus)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if err := c.Validate(&req); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	res, err := h.svc.Create(ctx, req.ToInput())
	if err != nil {
		return b.WithError(err).Build()
	}
	span.SetAttributes(attribute.String("order.number", res.OrderNumber))

	return b.WithStatus(http.StatusCreated).WithData(dto.CreateOrderResponse{
		OrderNumber: res.OrderNumber,
		OrderID:     res.OrderID,
		Message:     "Order created successfully",
		TotalAmount: res.TotalAmount,
		Status:      res.Status,
	}).Build()
}

func (h *Handler) today(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.today")
	defer span.End()

	view, err := h.svc.Today(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(view).WithCount(view.TotalCount).Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)

	number, err := orderNumber(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.get", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	view, err := h.svc.Get(ctx, number)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(view).Build()
}

func (h *Handler) updateStatus(c echo.Context) error {
	b := response.New(c)

	number, err := orderNumber(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	var req dto.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if err := c.Validate(&req); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateStatus", trace.WithAttributes(
		attribute.String("order.number", number),
		attribute.String("order.status", req.Status),
	))
	defer span.End()

	order, err := h.svc.UpdateStatus(ctx, service.UpdateStatusInput{
		OrderNumber: number,
		Status:      req.Status,
		Actor:       req.ChangedBy,
		Reason:      req.Reason,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.UpdateStatusResponse{
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Message:     "Order status updated",
	}).Build()
}

func orderNumber(c echo.Context) (string, error) {
	number := strings.ToUpper(strings.TrimSpace(c.Param("number")))
	if number == "" {
		return "", errorbank.BadRequest("order number is required", errorbank.WithDetail("field", "order_number"))
	}
	return number, nil
}
