package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/paygate/internal/adapter/paypal"
	"github.com/polkiloo/paygate/internal/app"
	"github.com/polkiloo/paygate/internal/config"
	"github.com/polkiloo/paygate/internal/events"
	"github.com/polkiloo/paygate/internal/logger"
	"github.com/polkiloo/paygate/internal/metrics"
	"github.com/polkiloo/paygate/internal/server/http/router"
	"github.com/polkiloo/paygate/internal/storage"
	"github.com/polkiloo/paygate/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		storage.Module,
		paypal.Module,
		events.Module,
		usecase.Module,
		fx.Provide(func(client paypal.Client) usecase.Gateway { return client }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
