package redirect

import (
	"go.uber.org/fx"

	"github.com/healthythako/payment-redirect/internal/app/service/auditlog"
	"github.com/healthythako/payment-redirect/internal/app/service/verification"
)

// Module exposes the redirect controller via Fx and binds its collaborator
// interfaces to the concrete services.
var Module = fx.Options(
	fx.Provide(func(c *verification.Client) Verifier { return c }),
	fx.Provide(func(s *auditlog.Service) Recorder { return s }),
	fx.Provide(NewController),
	fx.Provide(func(c *Controller) Resolver { return c }),
)
