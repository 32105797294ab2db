package handlers

import (
	"context"

	"github.com/polkiloo/paygate/internal/domain/model"
)

// CheckoutFacade describes purchase operations exposed via HTTP.
type CheckoutFacade interface {
	CreateOrder(ctx context.Context, productType string) (*model.Checkout, error)
	CompleteOrder(ctx context.Context, purchaseID, token string) (*model.Purchase, error)
	CancelOrder(ctx context.Context, purchaseID string) (*model.Purchase, error)
	OrderStatus(ctx context.Context, purchaseID string) (model.StatusReport, error)
}
