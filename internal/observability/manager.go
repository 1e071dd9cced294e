package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

const (
	serviceVersion  = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

// Manager owns the tracer and meter providers behind the package-level otel tracers and meters
// used across services, repositories and the notification dispatcher.
type Manager struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metricsHandler http.Handler
}

// Module exposes the observability manager to Fx.
var Module = fx.Provide(NewManager)

// NewManager builds providers from configuration and installs them globally on start.
func NewManager(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Manager, error) {
	ctx := context.Background()
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mgr := &Manager{}

	if cfg.Observability.EnableTracing {
		exporter, err := newTraceExporter(ctx, cfg.Observability, logger)
		if err != nil {
			return nil, err
		}
		if exporter != nil {
			mgr.tracerProvider = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(exporter),
				sdktrace.WithResource(res),
			)
		}
	}

	if cfg.Observability.EnableMetrics {
		mp, handler, err := newMeterProvider(cfg.Observability, res, logger)
		if err != nil {
			return nil, err
		}
		mgr.meterProvider = mp
		mgr.metricsHandler = handler
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			mgr.install()
			logger.Info("observability ready",
				zap.Bool("tracing", mgr.TracingEnabled()),
				zap.Bool("metrics", mgr.MetricsEnabled()),
			)
			return nil
		},
		OnStop: mgr.Shutdown,
	})

	return mgr, nil
}

func newResource(ctx context.Context, cfg config.Config) (*sdkresource.Resource, error) {
	return sdkresource.New(ctx,
		sdkresource.WithFromEnv(),
		sdkresource.WithHost(),
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.Observability.ServiceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("service.environment", cfg.Observability.Environment),
			attribute.String("order.migration_mode", cfg.Order.MigrationMode),
		),
	)
}

func (m *Manager) install() {
	if m.tracerProvider != nil {
		otel.SetTracerProvider(m.tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}
	if m.meterProvider != nil {
		otel.SetMeterProvider(m.meterProvider)
	}
}

// Shutdown flushes pending spans and metrics.
func (m *Manager) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var err error
	if m.tracerProvider != nil {
		err = errors.Join(err, m.tracerProvider.Shutdown(ctx))
	}
	if m.meterProvider != nil {
		err = errors.Join(err, m.meterProvider.Shutdown(ctx))
	}
	return err
}

// TracingEnabled reports whether tracing is active.
func (m *Manager) TracingEnabled() bool {
	return m.tracerProvider != nil
}

// MetricsEnabled reports whether metrics are active.
func (m *Manager) MetricsEnabled() bool {
	return m.meterProvider != nil
}

// MetricsHandler exposes the Prometheus HTTP handler; nil unless the prometheus exporter is used.
func (m *Manager) MetricsHandler() http.Handler {
	return m.metricsHandler
}
