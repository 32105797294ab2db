package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/polkiloo/paygate/internal/metrics"
	"github.com/polkiloo/paygate/internal/server/http/handlers"
	"github.com/polkiloo/paygate/internal/server/http/middleware"
	"github.com/polkiloo/paygate/internal/storage"
)

// Params collects router dependencies.
type Params struct {
	fx.In

	Facade  handlers.CheckoutFacade
	Logger  *slog.Logger
	Metrics *metrics.Metrics `optional:"true"`
	Ledger  storage.Pinger   `optional:"true"`
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.SetHTMLTemplate(handlers.Pages)

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(p.Logger))
	if p.Metrics != nil {
		engine.Use(middleware.RequestMetrics(p.Metrics))
	}
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	checkout := handlers.NewCheckoutHandler(p.Facade, p.Logger)
	pages := handlers.NewPageHandler(p.Facade, p.Logger)

	api := engine.Group("/api")
	api.POST("/orders", checkout.Create)
	api.GET("/orders/status", checkout.Status)

	engine.GET("/success", pages.Success)
	engine.GET("/cancel", pages.Cancel)
	var ledger handlers.HealthChecker
	if p.Ledger != nil {
		ledger = p.Ledger
	}
	engine.GET("/healthz", handlers.NewHealthHandler(ledger, p.Logger).Healthz)

	if p.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	return engine
}
