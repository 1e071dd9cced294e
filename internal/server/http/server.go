package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/observability"
	"github.com/Additional-Code/tenzai/internal/presentation/http/response"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

// Module exposes the HTTP server lifecycle to Fx.
var Module = fx.Module("http_server",
	fx.Provide(NewEcho),
	fx.Invoke(Run),
)

// NewEcho configures the Echo router with basic middleware.
func NewEcho(cfg config.Config, obs *observability.Manager, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	if obs != nil && obs.TracingEnabled() {
		e.Use(otelecho.Middleware(cfg.Observability.ServiceName))
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
	}))
	if cfg.HTTP.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.HTTP.BodyLimit))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	loc := cfg.Order.Location
	if loc == nil {
		loc = time.Local
	}
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":    "ok",
			"service":   cfg.Observability.ServiceName,
			"timestamp": time.Now().In(loc).Format(time.RFC3339),
		})
	})

	if obs != nil && obs.MetricsEnabled() && obs.MetricsHandler() != nil {
		e.GET(cfg.Observability.PrometheusPath, echo.WrapHandler(obs.MetricsHandler()))
	}

	return e
}

// errorHandler renders AppErrors and echo's own HTTP errors in the response envelope.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
			err = errorbank.New(kindForStatus(he.Code), msg, errorbank.WithCause(he.Internal))
		}

		appErr := errorbank.From(err)
		if appErr.Kind() == errorbank.KindInternal {
			logger.Error("http request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		_ = response.New(c).WithError(appErr).Build()
	}
}

func kindForStatus(code int) errorbank.Kind {
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return errorbank.KindBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return errorbank.KindUnauthorized
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return errorbank.KindNotFound
	case http.StatusConflict:
		return errorbank.KindConflict
	case http.StatusUnprocessableEntity:
		return errorbank.KindUnprocessableEntity
	case http.StatusServiceUnavailable:
		return errorbank.KindUnavailable
	case http.StatusGatewayTimeout:
		return errorbank.KindTimeout
	default:
		return errorbank.KindInternal
	}
}

// Run starts the HTTP server and ties it to the Fx lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, e *echo.Echo, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server", zap.String("addr", addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return server.Shutdown(ctx)
		},
	})
}
