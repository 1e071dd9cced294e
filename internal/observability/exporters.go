package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	stdoutmetric "go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

const (
	otlpDialTimeout      = 10 * time.Second
	stdoutMetricInterval = 30 * time.Second
)

// newTraceExporter returns nil without error for an unknown exporter name.
func newTraceExporter(ctx context.Context, cfg config.Observability, logger *zap.Logger) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.TraceExporter) {
	case "", "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		if cfg.TraceEndpoint == "" {
			return nil, fmt.Errorf("OBS_OTLP_ENDPOINT must be set for otlp exporter")
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.TraceEndpoint)}
		if cfg.TraceInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		dialCtx, cancel := context.WithTimeout(ctx, otlpDialTimeout)
		defer cancel()
		return otlptracegrpc.New(dialCtx, opts...)
	default:
		logger.Warn("unsupported trace exporter; tracing disabled", zap.String("exporter", cfg.TraceExporter))
		return nil, nil
	}
}

// newMeterProvider also returns the scrape handler when the exporter is prometheus.
func newMeterProvider(cfg config.Observability, res *sdkresource.Resource, logger *zap.Logger) (*sdkmetric.MeterProvider, http.Handler, error) {
	switch strings.ToLower(cfg.MetricsExporter) {
	case "prometheus":
		registry := prometheus.NewRegistry()
		exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
		if err != nil {
			return nil, nil, err
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter), sdkmetric.WithResource(res))
		return mp, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint(), stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, nil, err
		}
		reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(stdoutMetricInterval))
		return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res)), nil, nil
	default:
		logger.Warn("unsupported metrics exporter; metrics disabled", zap.String("exporter", cfg.MetricsExporter))
		return nil, nil, nil
	}
}
