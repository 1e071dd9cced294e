package line

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

type captured struct {
	path   string
	auth   string
	body   map[string]any
	status int
}

func newTestClient(t *testing.T, status int, token string) (*Client, *captured) {
	t.Helper()
	got := &captured{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)
		w.WriteHeader(got.status)
		_, _ = w.Write([]byte(`{"message":"bad"}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Config{Line: config.Line{
		AccessToken:   token,
		ChannelSecret: "secret",
		APIBaseURL:    srv.URL,
		Timeout:       time.Second,
	}}
	return NewClient(cfg, zap.NewNop()), got
}

func TestPushStripsChannelPrefix(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, "token")

	err := client.Push(context.Background(), "LINE_U123", Text("hello"))
	require.NoError(t, err)
	assert.Equal(t, "/v2/bot/message/push", got.path)
	assert.Equal(t, "Bearer token", got.auth)
	assert.Equal(t, "U123", got.body["to"])
	msgs := got.body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].(map[string]any)["text"])
}

func TestReplySendsToken(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, "token")

	require.NoError(t, client.Reply(context.Background(), "rt-1", Text("a"), Text("b")))
	assert.Equal(t, "/v2/bot/message/reply", got.path)
	assert.Equal(t, "rt-1", got.body["replyToken"])
	assert.Len(t, got.body["messages"], 2)
}

func TestNon200ReturnsAPIError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusBadRequest, "token")

	err := client.Push(context.Background(), "U1", Text("x"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad")
}

func TestMissingTokenIsNotConfigured(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, "")

	err := client.Push(context.Background(), "U1", Text("x"))
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, got.path)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	sig := Sign("secret", body)

	assert.True(t, VerifySignature("secret", body, sig))
	assert.False(t, VerifySignature("secret", body, "bogus"))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("", body, sig))
	assert.False(t, VerifySignature("secret", body, ""))
}

func TestPostbackAction(t *testing.T) {
	action, order := PostbackAction("action=accept_order&order=T0102ABCD")
	assert.Equal(t, "accept_order", action)
	assert.Equal(t, "T0102ABCD", order)

	action, order = PostbackAction("garbage")
	assert.Empty(t, action)
	assert.Empty(t, order)
}

func TestFormatBaht(t *testing.T) {
	assert.Equal(t, "1,250 บาท", FormatBaht(decimal.RequireFromString("1250.40")))
	assert.Equal(t, "350 บาท", FormatBaht(decimal.NewFromInt(350)))
	assert.Equal(t, "1,000,000 บาท", FormatBaht(decimal.NewFromInt(1000000)))
}

func TestOrderConfirmationFlex(t *testing.T) {
	msg := OrderConfirmationFlex(OrderSummary{OrderNumber: "T1", CustomerName: "A", Total: decimal.NewFromInt(99)})
	assert.Equal(t, "flex", msg["type"])
	assert.Equal(t, "ยืนยันออเดอร์ #T1", msg["altText"])
}
