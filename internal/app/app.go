package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/tenzai/internal/assistant"
	"github.com/Additional-Code/tenzai/internal/cache"
	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/database"
	"github.com/Additional-Code/tenzai/internal/line"
	"github.com/Additional-Code/tenzai/internal/logger"
	"github.com/Additional-Code/tenzai/internal/messaging"
	"github.com/Additional-Code/tenzai/internal/notification"
	"github.com/Additional-Code/tenzai/internal/observability"
	conversationrepo "github.com/Additional-Code/tenzai/internal/repository/conversation"
	customerrepo "github.com/Additional-Code/tenzai/internal/repository/customer"
	menurepo "github.com/Additional-Code/tenzai/internal/repository/menu"
	orderrepo "github.com/Additional-Code/tenzai/internal/repository/order"
	paymentrepo "github.com/Additional-Code/tenzai/internal/repository/payment"
	grpcserver "github.com/Additional-Code/tenzai/internal/server/grpc"
	httpserver "github.com/Additional-Code/tenzai/internal/server/http"
	conversationsvc "github.com/Additional-Code/tenzai/internal/service/conversation"
	customersvc "github.com/Additional-Code/tenzai/internal/service/customer"
	ordersvc "github.com/Additional-Code/tenzai/internal/service/order"
	paymentsvc "github.com/Additional-Code/tenzai/internal/service/payment"
	"github.com/Additional-Code/tenzai/internal/service/schema"
	"github.com/Additional-Code/tenzai/internal/store"
	transporthttp "github.com/Additional-Code/tenzai/internal/transport/http"
	"github.com/Additional-Code/tenzai/internal/worker"
	workerorder "github.com/Additional-Code/tenzai/internal/worker/order"
)

// Infra provides configuration, logging and the outbound connections.
var Infra = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
	cache.Module,
	messaging.Module,
	database.Module,
	store.Module,
	line.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	Infra,
	customerrepo.Module,
	orderrepo.Module,
	menurepo.Module,
	paymentrepo.Module,
	conversationrepo.Module,
	customersvc.Module,
	ordersvc.Module,
	paymentsvc.Module,
	notification.Module,
	assistant.Module,
	schema.Module,
	fx.Provide(
		func(d *notification.Dispatcher) ordersvc.Notifier { return d },
		func(c *store.Client) grpcserver.Pinger { return c },
	),
)

// Workers consumes order events; the engine stays idle unless messaging and workers are enabled.
var Workers = fx.Options(
	worker.Module,
	workerorder.Module,
)

// HTTP wires the HTTP and gRPC surfaces on top of the core modules.
var HTTP = fx.Options(
	Core,
	conversationsvc.Module,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	Workers,
)

// Module is the default application wiring: the API plus in-process workers, which lets the
// memory bus deliver events without a broker.
var Module = fx.Options(
	HTTP,
	Workers,
)
