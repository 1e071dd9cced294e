package notification

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/tenzai/internal/line"
)

// Module wires the queue, ledger and dispatcher, and ties the queue workers to
// the application lifecycle.
var Module = fx.Options(
	fx.Provide(
		NewQueue,
		NewLedger,
		NewDispatcher,
		func(c *line.Client) Pusher { return c },
	),
	fx.Invoke(func(lc fx.Lifecycle, q *Queue) {
		lc.Append(fx.Hook{
			OnStart: q.Start,
			OnStop:  q.Stop,
		})
	}),
)
