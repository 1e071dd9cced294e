package assistant

import "go.uber.org/fx"

// Module provides the Responder.
var Module = fx.Provide(NewResponder)
