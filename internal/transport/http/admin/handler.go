package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/Additional-Code/tenzai/internal/dto"
	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/presentation/http/response"
	"github.com/Additional-Code/tenzai/internal/service/schema"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/tenzai/transport/http/admin")

// Inspector samples record store tables.
type Inspector interface {
	Inspect(ctx context.Context, withSample bool) map[string]schema.TableInfo
}

// NotificationLog reads and writes the notification ledger.
type NotificationLog interface {
	Record(ctx context.Context, d *entity.NotificationDelivery) error
	Recent(ctx context.Context, limit int) ([]entity.NotificationDelivery, error)
}

// Handler serves debugging and staff endpoints.
type Handler struct {
	inspector     Inspector
	notifications NotificationLog
}

// NewHandler constructs an admin Handler.
func NewHandler(inspector Inspector, notifications NotificationLog) *Handler {
	return &Handler{inspector: inspector, notifications: notifications}
}

// Register mounts admin routes under /api.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/api")
	g.GET("/schema/inspect", h.inspect)
	g.GET("/schema/sample-data", h.sampleData)
	g.GET("/staff/notifications", h.listNotifications)
	g.POST("/staff/notifications", h.createNotification)
}

func (h *Handler) inspect(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "admin.inspect")
	defer span.End()

	return response.New(c).
		WithData(map[string]any{"schemas": h.inspector.Inspect(ctx, false)}).
		WithMeta("timestamp", time.Now().Format(time.RFC3339)).
		Build()
}

func (h *Handler) sampleData(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "admin.sampleData")
	defer span.End()

	return response.New(c).
		WithData(map[string]any{"samples": h.inspector.Inspect(ctx, true)}).
		WithMeta("timestamp", time.Now().Format(time.RFC3339)).
		Build()
}

func (h *Handler) listNotifications(c echo.Context) error {
	b := response.New(c)

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			return b.WithError(errorbank.BadRequest("invalid limit",
				errorbank.WithDetail("field", "limit"),
				errorbank.WithDetail("reason", "out_of_range"),
			)).Build()
		}
		limit = n
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "admin.listNotifications")
	defer span.End()

	rows, err := h.notifications.Recent(ctx, limit)
	if err != nil {
		return b.WithError(errorbank.Internal("failed to read notifications", errorbank.WithCause(err))).Build()
	}
	return b.WithData(rows).WithCount(len(rows)).Build()
}

func (h *Handler) createNotification(c echo.Context) error {
	b := response.New(c)

	var req dto.StaffNotificationRequest
	if err := c.Bind(&req); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if err := c.Validate(&req); err != nil {
		return b.WithError(err).Build()
	}

	kind := req.NotificationType
	if kind == "" {
		kind = "new_order"
	}
	delivery := &entity.NotificationDelivery{
		Kind:        kind,
		OrderNumber: req.OrderNumber,
		Channel:     req.Channel,
		Recipient:   req.Recipient,
		Status:      entity.DeliveryStatus(req.Status),
		Error:       req.Message,
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "admin.createNotification")
	defer span.End()

	if err := h.notifications.Record(ctx, delivery); err != nil {
		return b.WithError(errorbank.Internal("failed to create staff notification", errorbank.WithCause(err))).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(delivery).WithMeta("message", "Staff notification logged").Build()
}
