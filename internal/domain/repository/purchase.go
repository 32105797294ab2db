package repository

import (
	"context"
	"time"

	"github.com/polkiloo/paygate/internal/domain/model"
)

// PurchaseRepository describes the purchase ledger.
type PurchaseRepository interface {
	Create(ctx context.Context, purchase *model.Purchase) error
	Get(ctx context.Context, id string) (*model.Purchase, error)
	// CompareAndSwapStatus moves the purchase to next only when its stored status equals expected.
	CompareAndSwapStatus(ctx context.Context, id string, expected, next model.PurchaseStatus) (*model.Purchase, error)
	ListOpen(ctx context.Context, since time.Time, limit int) ([]model.Purchase, error)
}
