package test

import (
	"context"
	"time"

	"github.com/polkiloo/paygate/internal/domain/model"
	"github.com/polkiloo/paygate/internal/storage/memory"
)

// PurchaseRepositoryStub keeps purchases in memory and allows overriding each operation.
type PurchaseRepositoryStub struct {
	*memory.Storage

	CreateFn   func(context.Context, *model.Purchase) error
	GetFn      func(context.Context, string) (*model.Purchase, error)
	CASFn      func(context.Context, string, model.PurchaseStatus, model.PurchaseStatus) (*model.Purchase, error)
	ListOpenFn func(context.Context, time.Time, int) ([]model.Purchase, error)
}

// NewPurchaseRepositoryStub returns stub backed by empty in-memory ledger.
func NewPurchaseRepositoryStub() *PurchaseRepositoryStub {
	return &PurchaseRepositoryStub{Storage: memory.New()}
}

// Create stores purchase unless overridden.
func (s *PurchaseRepositoryStub) Create(ctx context.Context, p *model.Purchase) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, p)
	}
	return s.Storage.Create(ctx, p)
}

// Get loads purchase unless overridden.
func (s *PurchaseRepositoryStub) Get(ctx context.Context, id string) (*model.Purchase, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	return s.Storage.Get(ctx, id)
}

// CompareAndSwapStatus swaps status unless overridden.
func (s *PurchaseRepositoryStub) CompareAndSwapStatus(ctx context.Context, id string, expected, next model.PurchaseStatus) (*model.Purchase, error) {
	if s.CASFn != nil {
		return s.CASFn(ctx, id, expected, next)
	}
	return s.Storage.CompareAndSwapStatus(ctx, id, expected, next)
}

// ListOpen lists open purchases unless overridden.
func (s *PurchaseRepositoryStub) ListOpen(ctx context.Context, since time.Time, limit int) ([]model.Purchase, error) {
	if s.ListOpenFn != nil {
		return s.ListOpenFn(ctx, since, limit)
	}
	return s.Storage.ListOpen(ctx, since, limit)
}

// Seed stores purchase with given status, failing the test run on error.
func (s *PurchaseRepositoryStub) Seed(id, orderID string, product model.ProductType, status model.PurchaseStatus) *model.Purchase {
	amount, _ := model.PriceOf(product)
	p := &model.Purchase{
		ID:          id,
		OrderID:     orderID,
		ProductType: product,
		Amount:      amount,
		Currency:    "USD",
		Status:      status,
	}
	if err := s.Storage.Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}
