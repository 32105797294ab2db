package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainErrors "github.com/polkiloo/paygate/internal/domain/errors"
	"github.com/polkiloo/paygate/internal/domain/model"
	"github.com/polkiloo/paygate/internal/domain/repository"
	"github.com/polkiloo/paygate/internal/events"
	"github.com/polkiloo/paygate/internal/pkg/keylock"
)

// StatusUseCase answers status queries and reconciles open purchases with the processor.
type StatusUseCase struct {
	ledger
	gateway Gateway
	locks   *keylock.Locker
}

// NewStatusUseCase constructs StatusUseCase.
func NewStatusUseCase(
	purchases repository.PurchaseRepository,
	gateway Gateway,
	locks *keylock.Locker,
	publisher events.Publisher,
	recorder Recorder,
	logger *slog.Logger,
) *StatusUseCase {
	return &StatusUseCase{
		ledger:  newLedger(purchases, publisher, recorder, logger),
		gateway: gateway,
		locks:   locks,
	}
}

// Query returns purchase status, reconciling with processor unless already paid.
// Processor failures leave status unchanged and are not returned.
func (u *StatusUseCase) Query(ctx context.Context, purchaseID string) (model.StatusReport, error) {
	purchase, err := u.purchases.Get(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return model.StatusReport{}, nil
		}
		return model.StatusReport{}, err
	}
	if purchase.Status.Terminal() {
		return model.ReportOf(purchase), nil
	}

	unlock := u.locks.Lock(purchaseID)
	defer unlock()

	purchase, err = u.purchases.Get(ctx, purchaseID)
	if err != nil {
		return model.StatusReport{}, err
	}
	if purchase.Status.Terminal() {
		return model.ReportOf(purchase), nil
	}

	reconciled, err := u.reconcile(ctx, purchase)
	if err != nil {
		return model.StatusReport{}, err
	}
	return model.ReportOf(reconciled), nil
}

// OpenPurchases lists purchases awaiting settlement.
func (u *StatusUseCase) OpenPurchases(ctx context.Context, since time.Time, limit int) ([]model.Purchase, error) {
	return u.purchases.ListOpen(ctx, since, limit)
}

func (u *StatusUseCase) reconcile(ctx context.Context, purchase *model.Purchase) (*model.Purchase, error) {
	log := u.logger.With(slog.String("purchase_id", purchase.ID), slog.String("order_id", purchase.OrderID))

	cred, err := u.gateway.Authenticate(ctx)
	if err != nil {
		log.Warn("reconcile authenticate failed", slog.String("error", err.Error()))
		return purchase, nil
	}

	remote, err := u.gateway.FetchOrder(ctx, cred, purchase.OrderID)
	if err != nil {
		log.Warn("reconcile fetch failed", slog.String("error", err.Error()))
		return purchase, nil
	}

	switch remote.Status {
	case model.RemoteStatusCompleted:
		return u.transition(ctx, purchase, model.PurchaseStatusPaid)
	case model.RemoteStatusApproved:
		if !purchase.Status.Open() {
			return purchase, nil
		}
		captured, err := u.gateway.CaptureOrder(ctx, cred, purchase.OrderID)
		if err != nil {
			log.Warn("reconcile capture failed", slog.String("error", err.Error()))
			return purchase, nil
		}
		return u.transition(ctx, purchase, statusAfterCapture(purchase.Status, captured.Status))
	default:
		return purchase, nil
	}
}
