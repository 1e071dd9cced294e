package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
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

var storeTracer = otel.Tracer("github.com/Additional-Code/tenzai/store")

// Tier selects the credential attached to a request.
type Tier int

const (
	// Service is the elevated credential used for trusted server-side writes.
	Service Tier = iota
	// Anon is the restricted credential for reads that respect row-level policy.
	Anon
)

func (t Tier) String() string {
	if t == Anon {
		return "anon"
	}
	return "service"
}

const restPrefix = "/rest/v1/"

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPatch:  {},
	http.MethodPut:    {},
	http.MethodDelete: {},
}

// Client issues calls against the hosted record store REST API.
// It performs no retries; callers decide using IsRetryable.
type Client struct {
	baseURL    string
	serviceKey string
	anonKey    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Client from store configuration.
func New(cfg config.Store, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.AnonKey == "" {
		logger.Warn("store anon key not configured; public reads will be rejected by the store")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		serviceKey: cfg.ServiceKey,
		anonKey:    cfg.AnonKey,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Request performs one call. resource is a collection reference with its query string.
func (c *Client) Request(ctx context.Context, method, resource string, body any, tier Tier) (Result, error) {
	method = strings.ToUpper(method)
	if _, ok := allowedMethods[method]; !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	table := resource
	if i := strings.IndexByte(table, '?'); i >= 0 {
		table = table[:i]
	}
	ctx, span := storeTracer.Start(ctx, "Store.Request", trace.WithAttributes(
		attribute.String("store.method", method),
		attribute.String("store.table", table),
		attribute.String("store.tier", tier.String()),
	))
	defer span.End()

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Result{}, fmt.Errorf("store: encode body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+restPrefix+resource, payload)
	if err != nil {
		return Result{}, fmt.Errorf("store: build request: %w", err)
	}
	key := c.serviceKey
	if tier == Anon {
		key = c.anonKey
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classify(ctx, method, table, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.Warn("store request failed", zap.String("method", method), zap.String("table", table), zap.Error(err))
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		err = classify(ctx, method, table, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failure")
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		storeErr := &Error{Method: method, Resource: table, StatusCode: resp.StatusCode, Body: string(raw)}
		span.RecordError(storeErr)
		span.SetStatus(codes.Error, "non-2xx answer")
		c.logger.Warn("store answered with error",
			zap.String("method", method),
			zap.String("table", table),
			zap.Int("status", resp.StatusCode),
		)
		return Result{}, storeErr
	}

	c.logger.Debug("store request", zap.String("method", method), zap.String("table", table), zap.Int("status", resp.StatusCode))
	return newResult(resp.StatusCode, raw), nil
}

func classify(ctx context.Context, method, table string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("store: %s %s canceled: %w", method, table, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Method: method, Resource: table, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Method: method, Resource: table, Err: err}
	}
	return &UnavailableError{Method: method, Resource: table, Err: err}
}

// Select runs a read and decodes the rows into out.
func (c *Client) Select(ctx context.Context, q *Query, tier Tier, out any) error {
	res, err := c.Request(ctx, http.MethodGet, q.String(), nil, tier)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := res.Decode(out); err != nil {
		return fmt.Errorf("store: decode %s: %w", q.Table(), err)
	}
	return nil
}

// Insert creates rows in table with the service credential and decodes the
// echoed representation into out when the store returns one. It reports
// whether any rows were echoed.
func (c *Client) Insert(ctx context.Context, table string, rows any, out any) (bool, error) {
	res, err := c.Request(ctx, http.MethodPost, table, rows, Service)
	if err != nil {
		return false, err
	}
	if res.Empty() {
		return false, nil
	}
	if out != nil {
		if err := res.Decode(out); err != nil {
			return false, fmt.Errorf("store: decode %s: %w", table, err)
		}
	}
	return true, nil
}

// Update patches rows matched by q with the service credential.
func (c *Client) Update(ctx context.Context, q *Query, patch any) error {
	_, err := c.Request(ctx, http.MethodPatch, q.String(), patch, Service)
	return err
}

// Delete removes rows matched by q with the service credential.
func (c *Client) Delete(ctx context.Context, q *Query) error {
	_, err := c.Request(ctx, http.MethodDelete, q.String(), nil, Service)
	return err
}

// Ping checks that the store answers at all.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodGet, "", nil, Service)
	return err
}
