package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/paygate/internal/config"
	"github.com/polkiloo/paygate/internal/domain/repository"
	"github.com/polkiloo/paygate/internal/events"
	"github.com/polkiloo/paygate/internal/metrics"
	"github.com/polkiloo/paygate/internal/pkg/keylock"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	keylock.New,
	newPurchaseUseCase,
	newStatusUseCase,
)

type useCaseParams struct {
	fx.In

	Config    *config.Config
	Purchases repository.PurchaseRepository
	Gateway   Gateway
	Locks     *keylock.Locker
	Publisher events.Publisher
	Metrics   *metrics.Metrics `optional:"true"`
	Logger    *slog.Logger
}

func (p useCaseParams) recorder() Recorder {
	if p.Metrics == nil {
		return nil
	}
	return p.Metrics
}

func newPurchaseUseCase(p useCaseParams) *PurchaseUseCase {
	return NewPurchaseUseCase(p.Purchases, p.Gateway, p.Locks, p.Publisher, p.recorder(), CheckoutSettings{
		PublicBaseURL: p.Config.PublicBaseURL,
		Currency:      p.Config.Currency,
		BrandName:     p.Config.BrandName,
	}, p.Logger)
}

func newStatusUseCase(p useCaseParams) *StatusUseCase {
	return NewStatusUseCase(p.Purchases, p.Gateway, p.Locks, p.Publisher, p.recorder(), p.Logger)
}
