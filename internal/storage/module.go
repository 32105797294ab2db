package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/paygate/internal/config"
	"github.com/polkiloo/paygate/internal/domain/repository"
	"github.com/polkiloo/paygate/internal/storage/memory"
	"github.com/polkiloo/paygate/internal/storage/postgres"
	redisstore "github.com/polkiloo/paygate/internal/storage/redis"
)

// Module provides purchase ledger selected by configuration together with its health check.
var Module = fx.Provide(newLedger)

// Pinger reports whether the ledger backend is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

type inProcess struct{}

func (inProcess) HealthCheck(context.Context) error { return nil }

// Ledger is the storage module output.
type Ledger struct {
	fx.Out

	Purchases repository.PurchaseRepository
	Pinger    Pinger
}

type repositoryParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Ctx       context.Context
	Config    *config.Config
	Logger    *slog.Logger
}

var (
	openPostgres = postgres.New
	openRedis    = redisstore.New
)

func newLedger(p repositoryParams) (Ledger, error) {
	logger := p.Logger.With(slog.String("ledger", p.Config.LedgerBackend))

	switch p.Config.LedgerBackend {
	case config.BackendMemory, "":
		logger.Info("using in-memory ledger")
		return Ledger{Purchases: memory.New(), Pinger: inProcess{}}, nil
	case config.BackendPostgres:
		st, err := openPostgres(p.Ctx, p.Config.DatabaseURI, logger)
		if err != nil {
			return Ledger{}, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				st.Close()
				return nil
			},
		})
		return Ledger{Purchases: st.Purchases(), Pinger: st}, nil
	case config.BackendRedis:
		st, err := openRedis(p.Ctx, redisstore.Options{
			Addr:     p.Config.RedisAddr,
			Password: p.Config.RedisPassword,
			DB:       p.Config.RedisDB,
		}, logger)
		if err != nil {
			return Ledger{}, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return st.Close()
			},
		})
		return Ledger{Purchases: st, Pinger: st}, nil
	default:
		return Ledger{}, fmt.Errorf("unknown ledger backend %q", p.Config.LedgerBackend)
	}
}
