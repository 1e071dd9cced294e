package order

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	repo "github.com/Additional-Code/tenzai/internal/repository/order"
	customersvc "github.com/Additional-Code/tenzai/internal/service/customer"
)

// Module provides the order service and its migration writer to Fx.
var Module = fx.Options(
	fx.Provide(
		NewService,
		func(cfg config.Config, repository *repo.Repository, logger *zap.Logger) (Writer, error) {
			return NewWriter(cfg.Order.MigrationMode, repository, logger)
		},
		func(r *customersvc.Resolver) CustomerResolver { return r },
	),
)
