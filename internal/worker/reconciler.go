package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/paygate/internal/domain/model"
)

// ReconcileFacade exposes the subset of application functionality required by the worker.
type ReconcileFacade interface {
	OpenPurchases(ctx context.Context, since time.Time, limit int) ([]model.Purchase, error)
	ReconcilePurchase(ctx context.Context, purchaseID string) (model.PurchaseStatus, error)
}

// RunObserver is notified about every reconcile pass.
type RunObserver interface {
	ReconcileRun()
}

// Options tunes reconciler.
type Options struct {
	Interval  time.Duration
	BatchSize int
	Workers   int
	MaxAge    time.Duration
	Observer  RunObserver
}

// Reconciler periodically re-queries open purchases so that abandoned redirects still settle.
type Reconciler struct {
	facade    ReconcileFacade
	interval  time.Duration
	batchSize int
	workers   int
	maxAge    time.Duration
	observer  RunObserver
	logger    *slog.Logger
	now       func() time.Time

	jobs   chan model.Purchase
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewReconciler constructs reconciler worker pool.
func NewReconciler(facade ReconcileFacade, opts Options, logger *slog.Logger) *Reconciler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	return &Reconciler{
		facade:    facade,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		workers:   opts.Workers,
		maxAge:    opts.MaxAge,
		observer:  opts.Observer,
		logger:    logger,
		now:       time.Now,
		jobs:      make(chan model.Purchase, opts.BatchSize*opts.Workers),
	}
}

// Start launches background processing.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reconciler) dispatch(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.jobs)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fetchAndDispatch(ctx)
		}
	}
}

func (r *Reconciler) fetchAndDispatch(ctx context.Context) {
	if r.observer != nil {
		r.observer.ReconcileRun()
	}

	var since time.Time
	if r.maxAge > 0 {
		since = r.now().Add(-r.maxAge)
	}
	purchases, err := r.facade.OpenPurchases(ctx, since, r.batchSize)
	if err != nil {
		r.logger.Error("fetch open purchases failed", slog.String("error", err.Error()))
		return
	}
	for _, p := range purchases {
		select {
		case <-ctx.Done():
			return
		case r.jobs <- p:
		}
	}
}

func (r *Reconciler) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-r.jobs:
			if !ok {
				return
			}
			r.handle(ctx, p)
		}
	}
}

func (r *Reconciler) handle(ctx context.Context, p model.Purchase) {
	status, err := r.facade.ReconcilePurchase(ctx, p.ID)
	if err != nil {
		r.logger.Error("reconcile purchase failed", slog.String("purchase_id", p.ID), slog.String("error", err.Error()))
		return
	}
	if status != p.Status {
		r.logger.Info("purchase reconciled",
			slog.String("purchase_id", p.ID),
			slog.String("from", string(p.Status)),
			slog.String("to", string(status)),
		)
	}
}
