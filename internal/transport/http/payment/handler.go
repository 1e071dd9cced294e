package payment

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/tenzai/internal/dto"
	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/presentation/http/response"
	service "github.com/Additional-Code/tenzai/internal/service/payment"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/tenzai/transport/http/payment")

// Handler exposes payment transaction endpoints.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a payment Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts payment routes.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/api/payments")
	g.POST("", h.initiate)
	g.POST("/:id/slip", h.slip)
	g.POST("/:id/confirm", h.confirm)
	g.POST("/:id/fail", h.fail)
	e.GET("/api/orders/:number/payment", h.status)
}

func (h *Handler) initiate(c echo.Context) error {
	b := response.New(c)

	var req dto.InitiatePaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.initiate", trace.WithAttributes(attribute.String("order.number", req.OrderNumber)))
	defer span.End()

	tx, err := h.svc.Initiate(ctx, strings.ToUpper(req.OrderNumber), entity.PaymentMethod(req.Method))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(tx).Build()
}

func (h *Handler) slip(c echo.Context) error {
	b := response.New(c)

	var req dto.SlipRequest
	if err := bindAndValidate(c, &req); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.slip", trace.WithAttributes(attribute.String("payment.id", c.Param("id"))))
	defer span.End()

	tx, err := h.svc.SubmitSlip(ctx, c.Param("id"), req.SlipURL)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(tx).Build()
}

func (h *Handler) confirm(c echo.Context) error {
	b := response.New(c)

	var req dto.VerifyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.confirm", trace.WithAttributes(attribute.String("payment.id", c.Param("id"))))
	defer span.End()

	tx, err := h.svc.Confirm(ctx, c.Param("id"), req.VerifiedBy)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(tx).Build()
}

func (h *Handler) fail(c echo.Context) error {
	b := response.New(c)

	var req dto.VerifyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.fail", trace.WithAttributes(attribute.String("payment.id", c.Param("id"))))
	defer span.End()

	tx, err := h.svc.Fail(ctx, c.Param("id"), req.VerifiedBy, req.Reason)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(tx).Build()
}

func (h *Handler) status(c echo.Context) error {
	b := response.New(c)
	number := strings.ToUpper(c.Param("number"))

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.status", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	view, err := h.svc.Status(ctx, number)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(view).Build()
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errorbank.BadRequest("invalid payload", errorbank.WithCause(err))
	}
	return c.Validate(req)
}
