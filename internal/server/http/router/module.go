package router

import (
	"go.uber.org/fx"

	"github.com/polkiloo/paygate/internal/app"
	"github.com/polkiloo/paygate/internal/server/http/handlers"
)

// Module registers HTTP router construction for fx runtime.
var Module = fx.Options(
	fx.Provide(
		func(f *app.CheckoutFacade) handlers.CheckoutFacade { return f },
		Setup,
	),
)
