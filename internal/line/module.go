package line

import "go.uber.org/fx"

// Module provides the LINE client.
var Module = fx.Provide(NewClient)
