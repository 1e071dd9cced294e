package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/messaging"
	"github.com/Additional-Code/tenzai/internal/notification"
	ordersvc "github.com/Additional-Code/tenzai/internal/service/order"
	"github.com/Additional-Code/tenzai/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/tenzai/worker/order")

// StatusNotifier tells a customer that their order moved.
type StatusNotifier interface {
	NotifyStatusChange(order entity.Order, channel entity.Channel, channelUserID string)
}

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		func(d *notification.Dispatcher) StatusNotifier { return d },
		fx.Annotate(
			NewEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewEventHandler consumes order lifecycle events from the configured topic.
func NewEventHandler(notifier StatusNotifier, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: eventHandler(notifier, logger),
	}
}

func eventHandler(notifier StatusNotifier, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		_, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			// poison message; committing it keeps the partition moving
			return nil
		}
		span.SetAttributes(
			attribute.String("order.event", event.Type),
			attribute.String("order.number", event.OrderNumber),
		)

		switch event.Type {
		case ordersvc.EventCreated:
			logger.Info("order created event processed",
				zap.String("order_number", event.OrderNumber),
				zap.String("status", string(event.Status)),
				zap.String("total", event.TotalAmount.String()),
			)
		case ordersvc.EventStatusChanged:
			logger.Info("order status changed",
				zap.String("order_number", event.OrderNumber),
				zap.String("from", string(event.PreviousStatus)),
				zap.String("to", string(event.Status)),
				zap.String("actor", event.Actor),
			)
			order := event.Order()
			if event.Status == entity.StatusCancelled {
				order.CancelledReason = event.Reason
			}
			notifier.NotifyStatusChange(order, event.Channel, event.ChannelUserID)
		default:
			logger.Debug("ignoring order event", zap.String("type", event.Type))
		}
		return nil
	}
}
