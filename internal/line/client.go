// Package line talks to the LINE Messaging API: replies, pushes and webhook
// signature checks.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

var clientTracer = otel.Tracer("github.com/Additional-Code/tenzai/line")

// ErrNotConfigured is returned when no channel access token is set.
var ErrNotConfigured = errors.New("line: channel access token not configured")

// APIError carries a non-200 response from the platform.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line: %s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client sends messages through the LINE Messaging API.
type Client struct {
	baseURL string
	token   string
	secret  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a Client from configuration.
func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	timeout := cfg.Line.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Line.APIBaseURL, "/"),
		token:   cfg.Line.AccessToken,
		secret:  cfg.Line.ChannelSecret,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Configured reports whether outbound calls can be made.
func (c *Client) Configured() bool {
	return c.token != ""
}

// Verify checks a webhook body against the configured channel secret.
func (c *Client) Verify(body []byte, signature string) bool {
	return VerifySignature(c.secret, body, signature)
}

// Reply answers a webhook event with its reply token.
func (c *Client) Reply(ctx context.Context, replyToken string, msgs ...Message) error {
	return c.post(ctx, "/v2/bot/message/reply", map[string]any{
		"replyToken": replyToken,
		"messages":   msgs,
	})
}

// Push sends messages to a user. A LINE_ prefix on the id is stripped.
func (c *Client) Push(ctx context.Context, to string, msgs ...Message) error {
	return c.post(ctx, "/v2/bot/message/push", map[string]any{
		"to":       strings.TrimPrefix(to, "LINE_"),
		"messages": msgs,
	})
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	ctx, span := clientTracer.Start(ctx, "line.post", trace.WithAttributes(attribute.String("line.endpoint", endpoint)))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("line: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("line: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(raw)}
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, "unexpected status")
		return apiErr
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("line message sent", zap.String("endpoint", endpoint))
	return nil
}
