package paypal

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/paygate/internal/config"
	"github.com/polkiloo/paygate/internal/metrics"
)

// Module exposes processor client implementation to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func newClient(p clientParams) (Client, error) {
	opts := Options{
		ClientID:     p.Config.PayPalClientID,
		ClientSecret: p.Config.PayPalClientSecret,
		Timeout:      p.Config.GatewayTimeout,
	}
	if p.Metrics != nil {
		opts.Observer = p.Metrics
	}
	client, err := NewHTTPClient(p.Config.PayPalAPIBase, p.Logger, opts)
	if err != nil {
		return nil, err
	}
	if p.Config.TokenCache {
		return NewCachingClient(client, p.Config.GatewayTimeout), nil
	}
	return client, nil
}
