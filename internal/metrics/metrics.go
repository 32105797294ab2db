package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups collectors exposed on /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	purchasesCreated *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	gatewayRequests  *prometheus.CounterVec
	gatewayLatency   *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	reconcileRuns    prometheus.Counter
}

// New registers collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		purchasesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paygate",
			Name:      "purchases_created_total",
			Help:      "Purchases accepted by product type.",
		}, []string{"product"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paygate",
			Name:      "purchase_transitions_total",
			Help:      "Applied purchase status transitions.",
		}, []string{"from", "to"}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paygate",
			Name:      "gateway_requests_total",
			Help:      "Payment processor calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "paygate",
			Name:      "gateway_request_duration_seconds",
			Help:      "Payment processor call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paygate",
			Name:      "http_requests_total",
			Help:      "Served HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		reconcileRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paygate",
			Name:      "reconcile_runs_total",
			Help:      "Background reconcile passes.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.purchasesCreated,
		m.transitions,
		m.gatewayRequests,
		m.gatewayLatency,
		m.httpRequests,
		m.reconcileRuns,
	)
	return m
}

// PurchaseCreated counts accepted purchase.
func (m *Metrics) PurchaseCreated(product string) {
	m.purchasesCreated.WithLabelValues(product).Inc()
}

// Transition counts applied status transition.
func (m *Metrics) Transition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

// GatewayCall records processor call outcome and latency.
func (m *Metrics) GatewayCall(operation string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayRequests.WithLabelValues(operation, outcome).Inc()
	m.gatewayLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// HTTPRequest counts served request.
func (m *Metrics) HTTPRequest(route, code string) {
	m.httpRequests.WithLabelValues(route, code).Inc()
}

// ReconcileRun counts background pass.
func (m *Metrics) ReconcileRun() {
	m.reconcileRuns.Inc()
}
