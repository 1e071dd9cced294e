package http

import (
	"go.uber.org/fx"

	admintransport "github.com/Additional-Code/tenzai/internal/transport/http/admin"
	ordertransport "github.com/Additional-Code/tenzai/internal/transport/http/order"
	paymenttransport "github.com/Additional-Code/tenzai/internal/transport/http/payment"
	webhooktransport "github.com/Additional-Code/tenzai/internal/transport/http/webhook"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	paymenttransport.Module,
	webhooktransport.Module,
	admintransport.Module,
)
