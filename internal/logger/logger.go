package logger

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/tenzai/internal/config"
)

// Module exposes a configured Zap logger to the Fx container.
var Module = fx.Provide(New)

// New builds the service logger and flushes it when the application stops.
func New(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	logger, err := Build(cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// stderr/stdout sync fails with EINVAL on most terminals
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}

// Build constructs a logger tagged with the service identity and the shop's time zone.
func Build(cfg config.Config) (*zap.Logger, error) {
	logger, err := zapConfig(cfg.Observability).Build()
	if err != nil {
		return nil, err
	}

	return logger.With(
		zap.String("service", cfg.Observability.ServiceName),
		zap.String("environment", cfg.Observability.Environment),
		zap.String("timezone", cfg.Order.Timezone),
	), nil
}

func zapConfig(obs config.Observability) zap.Config {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(obs.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	if obs.LogEncoding == "console" {
		zc := zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zc
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = "json"
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	zc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	zc.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	zc.DisableStacktrace = level > zapcore.DebugLevel
	return zc
}
