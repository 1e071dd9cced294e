package conversation

import "go.uber.org/fx"

// Module provides the conversation repository to Fx.
var Module = fx.Provide(NewRepository)
