package verification

import "go.uber.org/fx"

// Module exposes the verification client via Fx.
var Module = fx.Options(
	fx.Provide(NewClient),
)
