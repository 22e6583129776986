package config

import "go.uber.org/fx"

// Module provides application configuration to the fx graph.
var Module = fx.Module("config",
	fx.Provide(Load),
)
