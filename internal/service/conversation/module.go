package conversation

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/tenzai/internal/assistant"
	"github.com/Additional-Code/tenzai/internal/line"
	conversationrepo "github.com/Additional-Code/tenzai/internal/repository/conversation"
	ordersvc "github.com/Additional-Code/tenzai/internal/service/order"
)

// Module provides the webhook conversation handler.
var Module = fx.Provide(
	NewHandler,
	func(c *line.Client) Replier { return c },
	func(r *assistant.Responder) Answerer { return r },
	func(s *ordersvc.Service) StatusUpdater { return s },
	func(r *conversationrepo.Repository) ExchangeLog { return r },
)
