// Package notification delivers order notifications to staff and customers in
// the background and keeps a ledger of every attempt.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/line"
)

var dispatcherMeter = otel.Meter("github.com/Additional-Code/tenzai/notification")

// Notification kinds recorded in the ledger.
const (
	KindStaffNewOrder   = "staff_new_order"
	KindCustomerCreated = "customer_order_created"
	KindStatusChanged   = "customer_status_changed"
)

// Pusher sends push messages to a platform user.
type Pusher interface {
	Push(ctx context.Context, to string, msgs ...line.Message) error
}

// Dispatcher turns order events into platform messages.
type Dispatcher struct {
	queue     *Queue
	pusher    Pusher
	ledger    Ledger
	staffID   string
	webAppURL string
	logger    *zap.Logger
	failed    metric.Int64Counter
	now       func() time.Time
}

// Params defines dependencies for constructing Dispatcher.
type Params struct {
	fx.In

	Queue  *Queue
	Pusher Pusher
	Ledger Ledger
	Config config.Config
	Logger *zap.Logger
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(p Params) *Dispatcher {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	failed, _ := dispatcherMeter.Int64Counter("notifications.failed")
	return &Dispatcher{
		queue:     p.Queue,
		pusher:    p.Pusher,
		ledger:    p.Ledger,
		staffID:   p.Config.Line.StaffUserID,
		webAppURL: strings.TrimRight(p.Config.Line.WebAppURL, "/"),
		logger:    logger,
		failed:    failed,
		now:       time.Now,
	}
}

// NotifyStaff pushes a new-order alert with accept and reject buttons.
func (d *Dispatcher) NotifyStaff(order entity.Order) {
	delivery := d.delivery(KindStaffNewOrder, order.OrderNumber, entity.ChannelLine, d.staffID)
	if d.staffID == "" {
		d.logger.Warn("staff user id not configured; staff notification skipped", zap.String("order_number", order.OrderNumber))
		d.settle(delivery, entity.DeliverySkipped, nil)
		return
	}

	msgs := []line.Message{
		line.Text(StaffSummary(order)),
		line.Buttons(
			fmt.Sprintf("ออเดอร์ใหม่ #%s", order.OrderNumber),
			fmt.Sprintf("ออเดอร์ #%s", order.OrderNumber),
			line.PostbackButton("✅ รับออเดอร์", "action=accept_order&order="+order.OrderNumber, ""),
			line.PostbackButton("❌ ปฏิเสธ", "action=reject_order&order="+order.OrderNumber, ""),
		),
	}
	d.push(delivery, msgs)
}

// NotifyCustomer confirms a new order on the customer's channel.
func (d *Dispatcher) NotifyCustomer(order entity.Order, channel entity.Channel, channelUserID string) {
	delivery := d.delivery(KindCustomerCreated, order.OrderNumber, channel, channelUserID)
	if !d.pushable(delivery, channel, channelUserID) {
		return
	}

	msgs := []line.Message{
		line.Text("🎉 สั่งอาหารเรียบร้อยแล้วค่ะ!"),
		line.OrderConfirmationFlex(line.OrderSummary{
			OrderNumber:   order.OrderNumber,
			CustomerName:  order.CustomerName,
			CustomerPhone: order.CustomerPhone,
			Total:         order.TotalAmount,
		}),
	}
	if link := d.TrackingURL(order.OrderNumber); link != "" {
		msgs = append(msgs, line.Buttons("ติดตามออเดอร์", "ติดตามสถานะออเดอร์ของคุณ", line.URIAction("📋 ติดตามออเดอร์", link)))
	}
	d.push(delivery, msgs)
}

// NotifyStatusChange tells the customer the order moved to a new status.
func (d *Dispatcher) NotifyStatusChange(order entity.Order, channel entity.Channel, channelUserID string) {
	delivery := d.delivery(KindStatusChanged, order.OrderNumber, channel, channelUserID)
	if !d.pushable(delivery, channel, channelUserID) {
		return
	}
	text := fmt.Sprintf("📦 ออเดอร์ #%s\nสถานะ: %s", order.OrderNumber, entity.TimelineLabel(order.Status))
	if order.Status == entity.StatusCancelled && order.CancelledReason != "" {
		text += "\nเหตุผล: " + order.CancelledReason
	}
	d.push(delivery, []line.Message{line.Text(text)})
}

// Record stores a manually reported notification.
func (d *Dispatcher) Record(ctx context.Context, delivery *entity.NotificationDelivery) error {
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = d.now().UTC()
	}
	if delivery.Status == "" {
		delivery.Status = entity.DeliverySent
	}
	return d.ledger.Record(ctx, delivery)
}

// Recent lists the latest ledger entries.
func (d *Dispatcher) Recent(ctx context.Context, limit int) ([]entity.NotificationDelivery, error) {
	return d.ledger.Recent(ctx, limit)
}

// TrackingURL links to the order status page, or is empty without a web app URL.
func (d *Dispatcher) TrackingURL(orderNumber string) string {
	if d.webAppURL == "" {
		return ""
	}
	return d.webAppURL + "/order-status.html?order=" + url.QueryEscape(orderNumber)
}

// StaffSummary renders the plain-text new-order alert.
func StaffSummary(order entity.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 ออเดอร์ใหม่ #%s\n", order.OrderNumber)
	fmt.Fprintf(&b, "ลูกค้า: %s (%s)\n", order.CustomerName, order.CustomerPhone)
	fmt.Fprintf(&b, "ประเภท: %s | ชำระ: %s\n", order.OrderType, order.PaymentMethod)
	fmt.Fprintf(&b, "ยอดรวม: %s", line.FormatBaht(order.TotalAmount))
	if order.Notes != "" {
		fmt.Fprintf(&b, "\nหมายเหตุ: %s", order.Notes)
	}
	return b.String()
}

func (d *Dispatcher) pushable(delivery *entity.NotificationDelivery, channel entity.Channel, userID string) bool {
	switch {
	case channel == entity.ChannelLine && userID != "":
		return true
	case channel == entity.ChannelLine:
		d.logger.Warn("LINE user id missing; notification skipped", zap.String("order_number", delivery.OrderNumber))
		d.settle(delivery, entity.DeliverySkipped, nil)
	default:
		d.logger.Info("customer channel has no push support",
			zap.String("order_number", delivery.OrderNumber),
			zap.String("channel", string(channel)),
		)
		d.settle(delivery, entity.DeliveryNotImplemented, nil)
	}
	return false
}

func (d *Dispatcher) delivery(kind, orderNumber string, channel entity.Channel, recipient string) *entity.NotificationDelivery {
	return &entity.NotificationDelivery{
		Kind:        kind,
		OrderNumber: orderNumber,
		Channel:     string(channel),
		Recipient:   recipient,
		CreatedAt:   d.now().UTC(),
	}
}

func (d *Dispatcher) push(delivery *entity.NotificationDelivery, msgs []line.Message) {
	ok := d.queue.Submit(delivery.Kind, func(ctx context.Context) error {
		err := d.pusher.Push(ctx, delivery.Recipient, msgs...)
		if err != nil {
			d.countFailure(ctx, delivery.Kind)
			d.record(ctx, delivery, entity.DeliveryFailed, err)
			return err
		}
		d.record(ctx, delivery, entity.DeliverySent, nil)
		return nil
	})
	if !ok {
		d.countFailure(context.Background(), delivery.Kind)
		go d.recordDetached(delivery, entity.DeliveryFailed, ErrQueueFull)
	}
}

// settle records an outcome decided without a network call.
func (d *Dispatcher) settle(delivery *entity.NotificationDelivery, status entity.DeliveryStatus, cause error) {
	ok := d.queue.Submit(delivery.Kind, func(ctx context.Context) error {
		d.record(ctx, delivery, status, cause)
		return nil
	})
	if !ok {
		go d.recordDetached(delivery, status, cause)
	}
}

func (d *Dispatcher) recordDetached(delivery *entity.NotificationDelivery, status entity.DeliveryStatus, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.record(ctx, delivery, status, cause)
}

func (d *Dispatcher) record(ctx context.Context, delivery *entity.NotificationDelivery, status entity.DeliveryStatus, cause error) {
	delivery.Status = status
	if cause != nil {
		delivery.Error = cause.Error()
		if errors.Is(cause, line.ErrNotConfigured) {
			delivery.Error = "messaging platform not configured"
		}
	}
	if err := d.ledger.Record(ctx, delivery); err != nil {
		d.logger.Warn("failed to record notification",
			zap.String("kind", delivery.Kind),
			zap.String("order_number", delivery.OrderNumber),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) countFailure(ctx context.Context, kind string) {
	if d.failed != nil {
		d.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}
