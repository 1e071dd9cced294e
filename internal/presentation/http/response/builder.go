package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

// Builder renders the {success, data, error, meta} envelope shared by every
// JSON endpoint. Errors are mapped through errorbank so store timeouts and
// outages surface as retryable 504/503 responses.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
	meta   map[string]any
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithCount records the number of returned records under meta.count.
func (b *Builder) WithCount(n int) *Builder {
	return b.WithMeta("count", n)
}

// WithMeta appends auxiliary metadata to the response.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// Envelope is the JSON body of every response.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorBody     `json:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if b.err == nil {
		return b.ctx.JSON(b.status, Envelope{Success: true, Data: b.data, Meta: b.meta})
	}

	appErr := errorbank.From(b.err)
	status := b.status
	if status < http.StatusBadRequest {
		status = appErr.StatusCode()
	}
	if appErr.Retryable() {
		b.ctx.Response().Header().Set("Retry-After", "1")
	}
	return b.ctx.JSON(status, Envelope{
		Meta: b.meta,
		Error: &ErrorBody{
			Kind:      string(appErr.Kind()),
			Message:   appErr.Message(),
			Retryable: appErr.Retryable(),
			Details:   appErr.Details(),
		},
	})
}
