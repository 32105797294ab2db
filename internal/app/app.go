package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/paygate/internal/config"
	"github.com/polkiloo/paygate/internal/metrics"
	"github.com/polkiloo/paygate/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewCheckoutFacade,
		newHTTPServer,
		newReconciler,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

func newHTTPServer(p serverParams) *http.Server {
	// a redirect may authenticate and capture in sequence
	writeTimeout := 2*p.Config.GatewayTimeout + readHeaderTimeout
	return &http.Server{
		Addr:              p.Config.RunAddress,
		Handler:           p.Router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

type workerParams struct {
	fx.In

	Facade  *CheckoutFacade
	Config  *config.Config
	Metrics *metrics.Metrics `optional:"true"`
	Logger  *slog.Logger
}

func newReconciler(p workerParams) *worker.Reconciler {
	opts := worker.Options{
		Interval:  p.Config.ReconcileInterval,
		BatchSize: p.Config.ReconcileBatch,
		Workers:   p.Config.WorkerPoolSize,
		MaxAge:    p.Config.ReconcileMaxAge,
	}
	if p.Metrics != nil {
		opts.Observer = p.Metrics
	}
	return worker.NewReconciler(p.Facade, opts, p.Logger.With(slog.String("component", "reconciler")))
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.Reconciler
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting paygate",
				slog.String("addr", p.Server.Addr),
				slog.String("ledger", p.Config.LedgerBackend),
				slog.Duration("reconcile_interval", p.Config.ReconcileInterval),
			)
			p.Worker.Start(ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			err := p.Server.Shutdown(shutdownCtx)
			p.Worker.Stop()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("paygate stopped")
			return nil
		},
	})
}
