package usecase

import (
	"context"
	"errors"
	"log/slog"

	domainErrors "github.com/polkiloo/paygate/internal/domain/errors"
	"github.com/polkiloo/paygate/internal/domain/model"
	"github.com/polkiloo/paygate/internal/domain/repository"
	"github.com/polkiloo/paygate/internal/events"
)

// Gateway is the payment processor used by purchase flows.
type Gateway interface {
	Authenticate(ctx context.Context) (*model.Credential, error)
	CreateOrder(ctx context.Context, cred *model.Credential, req model.OrderRequest) (*model.RemoteOrder, error)
	FetchOrder(ctx context.Context, cred *model.Credential, orderID string) (*model.RemoteOrder, error)
	CaptureOrder(ctx context.Context, cred *model.Credential, orderID string) (*model.RemoteOrder, error)
}

// Recorder receives business counters.
type Recorder interface {
	PurchaseCreated(product string)
	Transition(from, to string)
}

type nopRecorder struct{}

func (nopRecorder) PurchaseCreated(string)    {}
func (nopRecorder) Transition(string, string) {}

// ledger applies status transitions and reports them.
type ledger struct {
	purchases repository.PurchaseRepository
	publisher events.Publisher
	recorder  Recorder
	logger    *slog.Logger
}

func newLedger(purchases repository.PurchaseRepository, publisher events.Publisher, recorder Recorder, logger *slog.Logger) ledger {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return ledger{purchases: purchases, publisher: publisher, recorder: recorder, logger: logger}
}

// transition moves purchase to next status. A paid purchase is returned as is.
func (l ledger) transition(ctx context.Context, p *model.Purchase, next model.PurchaseStatus) (*model.Purchase, error) {
	if p.Status == next || p.Status.Terminal() {
		return p, nil
	}

	updated, err := l.purchases.CompareAndSwapStatus(ctx, p.ID, p.Status, next)
	if err != nil {
		if !errors.Is(err, domainErrors.ErrStaleStatus) {
			return nil, err
		}
		current, getErr := l.purchases.Get(ctx, p.ID)
		if getErr != nil {
			return nil, getErr
		}
		l.logger.Warn("stale purchase transition rejected",
			slog.String("purchase_id", p.ID),
			slog.String("expected", string(p.Status)),
			slog.String("actual", string(current.Status)),
			slog.String("next", string(next)),
		)
		return current, nil
	}

	l.recorder.Transition(string(p.Status), string(next))
	l.logger.Info("purchase transitioned",
		slog.String("purchase_id", p.ID),
		slog.String("order_id", p.OrderID),
		slog.String("from", string(p.Status)),
		slog.String("to", string(next)),
	)
	l.publish(ctx, updated, p.Status)
	return updated, nil
}

func (l ledger) publish(ctx context.Context, p *model.Purchase, from model.PurchaseStatus) {
	if err := l.publisher.Publish(ctx, events.NewEvent(p, from)); err != nil {
		l.logger.Warn("publish purchase event failed",
			slog.String("purchase_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

// statusAfterCapture decides local status from remote capture result.
func statusAfterCapture(current model.PurchaseStatus, remote model.RemoteStatus) model.PurchaseStatus {
	if remote == model.RemoteStatusCompleted {
		return model.PurchaseStatusPaid
	}
	if current.Open() {
		return model.PurchaseStatusPending
	}
	return current
}
