package app

import (
	"context"
	"time"

	"github.com/polkiloo/paygate/internal/domain/model"
	"github.com/polkiloo/paygate/internal/usecase"
)

// CheckoutFacade is the entry point used by HTTP handlers and background workers.
type CheckoutFacade struct {
	purchases *usecase.PurchaseUseCase
	status    *usecase.StatusUseCase
}

func NewCheckoutFacade(purchases *usecase.PurchaseUseCase, status *usecase.StatusUseCase) *CheckoutFacade {
	return &CheckoutFacade{purchases: purchases, status: status}
}

func (f *CheckoutFacade) CreateOrder(ctx context.Context, productType string) (*model.Checkout, error) {
	return f.purchases.CreateOrder(ctx, productType)
}

func (f *CheckoutFacade) CompleteOrder(ctx context.Context, purchaseID, token string) (*model.Purchase, error) {
	return f.purchases.CompleteViaRedirect(ctx, purchaseID, token)
}

func (f *CheckoutFacade) CancelOrder(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	return f.purchases.Cancel(ctx, purchaseID)
}

func (f *CheckoutFacade) OrderStatus(ctx context.Context, purchaseID string) (model.StatusReport, error) {
	return f.status.Query(ctx, purchaseID)
}

func (f *CheckoutFacade) OpenPurchases(ctx context.Context, since time.Time, limit int) ([]model.Purchase, error) {
	return f.status.OpenPurchases(ctx, since, limit)
}

func (f *CheckoutFacade) ReconcilePurchase(ctx context.Context, purchaseID string) (model.PurchaseStatus, error) {
	report, err := f.status.Query(ctx, purchaseID)
	if err != nil {
		return "", err
	}
	return report.Status, nil
}
