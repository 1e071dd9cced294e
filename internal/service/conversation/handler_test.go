package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/assistant"
	"github.com/Additional-Code/tenzai/internal/cache"
	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/line"
	ordersvc "github.com/Additional-Code/tenzai/internal/service/order"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

type reply struct {
	token string
	msgs  []line.Message
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []reply
	err     error
}

func (f *fakeReplier) Reply(_ context.Context, token string, msgs ...line.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.replies = append(f.replies, reply{token: token, msgs: msgs})
	return nil
}

type fakeAnswerer struct{ prompts []string }

func (f *fakeAnswerer) Respond(_ context.Context, text, _ string) string {
	f.prompts = append(f.prompts, text)
	return "model says hi"
}

type fakeOrders struct {
	inputs []ordersvc.UpdateStatusInput
	err    error
}

func (f *fakeOrders) UpdateStatus(_ context.Context, in ordersvc.UpdateStatusInput) (*entity.Order, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Order{OrderNumber: in.OrderNumber, Status: entity.OrderStatus(in.Status)}, nil
}

type fakeLog struct {
	rows []entity.Conversation
	err  error
}

func (f *fakeLog) Log(_ context.Context, c entity.Conversation) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, c)
	return nil
}

type fixture struct {
	h        *Handler
	replier  *fakeReplier
	answerer *fakeAnswerer
	orders   *fakeOrders
	log      *fakeLog
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		replier:  &fakeReplier{},
		answerer: &fakeAnswerer{},
		orders:   &fakeOrders{},
		log:      &fakeLog{},
	}
	f.h = NewHandler(Params{
		Replier:  f.replier,
		Answerer: f.answerer,
		Orders:   f.orders,
		Log:      f.log,
		Cache:    cache.NewMemory(),
		Config:   config.Config{Line: config.Line{WebAppURL: "https://shop.example"}},
		Logger:   zap.NewNop(),
	})
	f.h.now = func() time.Time { return time.Date(2025, 1, 2, 5, 0, 0, 0, time.UTC) }
	return f
}

func textEvent(id, text string) line.Event {
	return line.Event{
		Type:           line.EventMessage,
		ReplyToken:     "rt-" + id,
		WebhookEventID: id,
		Source:         line.Source{Type: "user", UserID: "U42"},
		Message:        &line.IncomingMsg{Type: "text", Text: text},
	}
}

func postbackEvent(id, data string) line.Event {
	return line.Event{
		Type:           line.EventPostback,
		ReplyToken:     "rt-" + id,
		WebhookEventID: id,
		Source:         line.Source{Type: "user", UserID: "Ustaff"},
		Postback:       &line.Postback{Data: data},
	}
}

func TestFAQReplyWithOrderButtonIsLogged(t *testing.T) {
	f := newFixture(t)

	n := f.h.HandleEvents(context.Background(), line.Payload{Events: []line.Event{textEvent("e1", "อยากสั่งอาหาร")}})
	assert.Equal(t, 1, n)

	require.Len(t, f.replier.replies, 1)
	msgs := f.replier.replies[0].msgs
	require.Len(t, msgs, 2)
	want, _ := assistant.FAQ(assistant.IntentOrder)
	assert.Equal(t, want, msgs[0]["text"])
	tmpl := msgs[1]["template"].(map[string]any)
	uri := tmpl["actions"].([]line.Action)[0]["uri"]
	assert.Equal(t, "https://shop.example/customer_webapp.html?platform=LINE&user_id=U42", uri)

	require.Len(t, f.log.rows, 1)
	assert.Equal(t, "LINE_U42", f.log.rows[0].UserID)
	assert.Equal(t, want, f.log.rows[0].ResponseText)
	assert.Empty(t, f.answerer.prompts)
}

func TestGreetingAndModelReplies(t *testing.T) {
	f := newFixture(t)

	f.h.HandleEvents(context.Background(), line.Payload{Events: []line.Event{
		textEvent("e1", "สวัสดี"),
		textEvent("e2", "ok"),
	}})

	require.Len(t, f.replier.replies, 2)
	assert.Equal(t, assistant.GreetingMessage, f.replier.replies[0].msgs[0]["text"])
	assert.Len(t, f.replier.replies[0].msgs, 2)
	assert.Equal(t, "model says hi", f.replier.replies[1].msgs[0]["text"])
	assert.Equal(t, []string{"ok"}, f.answerer.prompts)
	assert.Len(t, f.log.rows, 2)
}

func TestDuplicateEventsAreSkipped(t *testing.T) {
	f := newFixture(t)
	payload := line.Payload{Events: []line.Event{textEvent("same", "hours?")}}

	assert.Equal(t, 1, f.h.HandleEvents(context.Background(), payload))
	assert.Equal(t, 0, f.h.HandleEvents(context.Background(), payload))
	assert.Len(t, f.replier.replies, 1)
}

func TestFailedReplyIsNotLogged(t *testing.T) {
	f := newFixture(t)
	f.replier.err = line.ErrNotConfigured

	n := f.h.HandleEvents(context.Background(), line.Payload{Events: []line.Event{textEvent("e1", "hours")}})
	assert.Equal(t, 1, n)
	assert.Empty(t, f.log.rows)
}

func TestLogFailureDoesNotBreakHandling(t *testing.T) {
	f := newFixture(t)
	f.log.err = errors.New("store down")

	n := f.h.HandleEvents(context.Background(), line.Payload{Events: []line.Event{textEvent("e1", "hours")}})
	assert.Equal(t, 1, n)
	assert.Len(t, f.replier.replies, 1)
}

func TestPostbackAcceptAndReject(t *testing.T) {
	f := newFixture(t)

	f.h.HandleEvents(context.Background(), line.Payload{Events: []line.Event{
		postbackEvent("p1", "action=accept_order&order=T0102ABCD"),
		postbackEvent("p2", "action=reject_order&order=T0102BEEF"),
	}})

	require.Len(t, f.orders.inputs, 2)
	assert.Equal(t, ordersvc.UpdateStatusInput{
		OrderNumber: "T0102ABCD",
		Status:      "confirmed",
		Actor:       "LINE_Ustaff",
		Reason:      "accepted via LINE",
	}, f.orders.inputs[0])
	assert.Equal(t, "cancelled", f.orders.inputs[1].Status)
	assert.Equal(t, "rejected via LINE", f.orders.inputs[1].Reason)

	require.Len(t, f.replier.replies, 2)
	assert.Contains(t, f.replier.replies[0].msgs[0]["text"], "รับออเดอร์ #T0102ABCD")
	assert.Contains(t, f.replier.replies[1].msgs[0]["text"], "ปฏิเสธออเดอร์ #T0102BEEF")
	assert.Empty(t, f.log.rows)
}

func TestPostbackFailureRepliesWithReason(t *testing.T) {
	f := newFixture(t)
	f.orders.err = errorbank.NotFound("order not found")

	f.h.HandleEvents(context.Background(), line.Payload{Events: []line.Event{
		postbackEvent("p1", "action=accept_order&order=T404"),
	}})

	require.Len(t, f.replier.replies, 1)
	text := f.replier.replies[0].msgs[0]["text"].(string)
	assert.Contains(t, text, "T404")
	assert.Contains(t, text, "order not found")
}

func TestUnknownPostbackIgnored(t *testing.T) {
	f := newFixture(t)

	n := f.h.HandleEvents(context.Background(), line.Payload{Events: []line.Event{
		postbackEvent("p1", "action=dance"),
		{Type: "follow", WebhookEventID: "f1"},
	}})
	assert.Equal(t, 2, n)
	assert.Empty(t, f.orders.inputs)
	assert.Empty(t, f.replier.replies)
}
