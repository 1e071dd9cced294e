package conversation

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/assistant"
	"github.com/Additional-Code/tenzai/internal/cache"
	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/line"
	ordersvc "github.com/Additional-Code/tenzai/internal/service/order"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

var handlerTracer = otel.Tracer("github.com/Additional-Code/tenzai/service/conversation")

const (
	dedupTTL          = 24 * time.Hour
	buttonsOnlyReply  = "ปุ่มและข้อความ"
	actionAcceptOrder = "accept_order"
	actionRejectOrder = "reject_order"
)

// Replier answers a webhook event.
type Replier interface {
	Reply(ctx context.Context, replyToken string, msgs ...line.Message) error
}

// Answerer produces a free-form reply.
type Answerer interface {
	Respond(ctx context.Context, text, userID string) string
}

// StatusUpdater moves an order through its lifecycle.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, in ordersvc.UpdateStatusInput) (*entity.Order, error)
}

// ExchangeLog persists chat exchanges.
type ExchangeLog interface {
	Log(ctx context.Context, c entity.Conversation) error
}

// Handler processes messaging platform webhook events.
type Handler struct {
	replier   Replier
	answerer  Answerer
	orders    StatusUpdater
	log       ExchangeLog
	cache     cache.Store
	webAppURL string
	logger    *zap.Logger
	now       func() time.Time
}

// Params defines dependencies for constructing Handler.
type Params struct {
	fx.In

	Replier  Replier
	Answerer Answerer
	Orders   StatusUpdater
	Log      ExchangeLog
	Cache    cache.Store
	Config   config.Config
	Logger   *zap.Logger
}

// NewHandler wires a Handler.
func NewHandler(p Params) *Handler {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		replier:   p.Replier,
		answerer:  p.Answerer,
		orders:    p.Orders,
		log:       p.Log,
		cache:     p.Cache,
		webAppURL: strings.TrimRight(p.Config.Line.WebAppURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// HandleEvents processes every event of a webhook payload and returns how many
// were handled. Redelivered events seen before are skipped.
func (h *Handler) HandleEvents(ctx context.Context, payload line.Payload) int {
	ctx, span := handlerTracer.Start(ctx, "ConversationHandler.HandleEvents",
		trace.WithAttributes(attribute.Int("events", len(payload.Events))))
	defer span.End()

	processed := 0
	for _, event := range payload.Events {
		if h.duplicate(ctx, event) {
			h.logger.Info("duplicate webhook event skipped", zap.String("event_id", event.WebhookEventID))
			continue
		}
		switch {
		case event.Type == line.EventPostback && event.Postback != nil:
			h.handlePostback(ctx, event)
		case event.IsText():
			h.handleText(ctx, event)
		default:
			h.logger.Debug("ignoring webhook event", zap.String("type", event.Type))
		}
		processed++
	}
	return processed
}

func (h *Handler) duplicate(ctx context.Context, event line.Event) bool {
	if event.WebhookEventID == "" || h.cache == nil {
		return false
	}
	stored, err := h.cache.SetNX(ctx, "line:event:"+event.WebhookEventID, []byte("1"), dedupTTL)
	if err != nil {
		h.logger.Warn("webhook dedup check failed", zap.Error(err))
		return false
	}
	return !stored
}

func (h *Handler) handleText(ctx context.Context, event line.Event) {
	userID := event.Source.UserID
	text := event.Message.Text
	intent := assistant.Classify(text)

	var (
		reply string
		msgs  []line.Message
	)
	switch {
	case intent == assistant.IntentGreeting:
		reply = assistant.GreetingMessage
		msgs = append(msgs, line.Text(reply))
		if b := h.orderButton(userID, "สั่งอาหารได้เลยค่ะ!"); b != nil {
			msgs = append(msgs, b)
		}
	case intent.NeedsModel():
		reply = h.answerer.Respond(ctx, text, userID)
		msgs = append(msgs, line.Text(reply))
	default:
		reply, _ = assistant.FAQ(intent)
		msgs = append(msgs, line.Text(reply))
		if intent == assistant.IntentOrder || intent == assistant.IntentMenu {
			if b := h.orderButton(userID, "คลิกสั่งอาหารได้เลย!"); b != nil {
				msgs = append(msgs, b)
			}
		}
	}

	if err := h.replier.Reply(ctx, event.ReplyToken, msgs...); err != nil {
		h.logger.Warn("reply failed", zap.String("user_id", userID), zap.String("intent", string(intent)), zap.Error(err))
		return
	}

	if reply == "" {
		reply = buttonsOnlyReply
	}
	err := h.log.Log(ctx, entity.Conversation{
		UserID:       entity.ChannelLine.Identifier(userID),
		MessageText:  text,
		ResponseText: reply,
		CreatedAt:    h.now(),
	})
	if err != nil {
		h.logger.Warn("failed to log conversation", zap.String("user_id", userID), zap.Error(err))
	}
}

func (h *Handler) handlePostback(ctx context.Context, event line.Event) {
	action, number := line.PostbackAction(event.Postback.Data)
	if number == "" || (action != actionAcceptOrder && action != actionRejectOrder) {
		h.logger.Info("unrecognised postback", zap.String("data", event.Postback.Data))
		return
	}

	in := ordersvc.UpdateStatusInput{
		OrderNumber: number,
		Status:      string(entity.StatusConfirmed),
		Actor:       entity.ChannelLine.Identifier(event.Source.UserID),
		Reason:      "accepted via LINE",
	}
	text := fmt.Sprintf("✅ รับออเดอร์ #%s แล้ว!\nสถานะ: ยืนยันออเดอร์", number)
	if action == actionRejectOrder {
		in.Status = string(entity.StatusCancelled)
		in.Reason = "rejected via LINE"
		text = fmt.Sprintf("❌ ปฏิเสธออเดอร์ #%s\nสถานะ: ยกเลิกออเดอร์", number)
	}

	if _, err := h.orders.UpdateStatus(ctx, in); err != nil {
		h.logger.Warn("postback status update failed",
			zap.String("order_number", number),
			zap.String("action", action),
			zap.Error(err),
		)
		text = fmt.Sprintf("⚠️ ไม่สามารถอัปเดตออเดอร์ #%s ได้\n%s", number, errorbank.From(err).Message())
	}

	if err := h.replier.Reply(ctx, event.ReplyToken, line.Text(text)); err != nil {
		h.logger.Warn("postback reply failed", zap.String("order_number", number), zap.Error(err))
	}
}

func (h *Handler) orderButton(userID, text string) line.Message {
	if h.webAppURL == "" {
		return nil
	}
	link := fmt.Sprintf("%s/customer_webapp.html?platform=LINE&user_id=%s", h.webAppURL, url.QueryEscape(userID))
	return line.Buttons("สั่งอาหาร", text, line.URIAction("🍜 สั่งอาหาร", link))
}
