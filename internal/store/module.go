package store

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

// Module provides the record store client to Fx.
var Module = fx.Provide(func(cfg config.Config, logger *zap.Logger) *Client {
	return New(cfg.Store, logger)
})
