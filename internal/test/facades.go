package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/paygate/internal/domain/model"
)

// CheckoutFacadeStub provides controllable behaviour for checkout endpoints.
type CheckoutFacadeStub struct {
	CreateFn   func(context.Context, string) (*model.Checkout, error)
	CompleteFn func(context.Context, string, string) (*model.Purchase, error)
	CancelFn   func(context.Context, string) (*model.Purchase, error)
	StatusFn   func(context.Context, string) (model.StatusReport, error)
}

// CreateOrder delegates to provided function or returns default checkout.
func (s CheckoutFacadeStub) CreateOrder(ctx context.Context, productType string) (*model.Checkout, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, productType)
	}
	return &model.Checkout{ApprovalURL: "https://processor.test/approve", PurchaseID: "p-1", OrderID: "O-1"}, nil
}

// CompleteOrder returns paid purchase unless overridden.
func (s CheckoutFacadeStub) CompleteOrder(ctx context.Context, purchaseID, token string) (*model.Purchase, error) {
	if s.CompleteFn != nil {
		return s.CompleteFn(ctx, purchaseID, token)
	}
	return samplePurchase(purchaseID, token, model.PurchaseStatusPaid), nil
}

// CancelOrder returns cancelled purchase unless overridden.
func (s CheckoutFacadeStub) CancelOrder(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, purchaseID)
	}
	return samplePurchase(purchaseID, "O-1", model.PurchaseStatusCancelled), nil
}

// OrderStatus returns created report unless overridden.
func (s CheckoutFacadeStub) OrderStatus(ctx context.Context, purchaseID string) (model.StatusReport, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, purchaseID)
	}
	return model.ReportOf(samplePurchase(purchaseID, "O-1", model.PurchaseStatusCreated)), nil
}

func samplePurchase(id, orderID string, status model.PurchaseStatus) *model.Purchase {
	amount, _ := model.PriceOf(model.ProductSingle)
	return &model.Purchase{ID: id, OrderID: orderID, ProductType: model.ProductSingle, Amount: amount, Currency: "USD", Status: status}
}

// ReconcileFacadeStub mimics worker interactions with checkout facade.
type ReconcileFacadeStub struct {
	Batches     [][]model.Purchase
	OpenFn      func(context.Context, time.Time, int) ([]model.Purchase, error)
	ReconcileFn func(context.Context, string) (model.PurchaseStatus, error)

	mu         sync.Mutex
	reconciled []string
	openCalls  int32
}

// OpenPurchases returns batches from configured queue.
func (s *ReconcileFacadeStub) OpenPurchases(ctx context.Context, since time.Time, limit int) ([]model.Purchase, error) {
	if s.OpenFn != nil {
		return s.OpenFn(ctx, since, limit)
	}
	call := atomic.AddInt32(&s.openCalls, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// ReconcilePurchase records purchase id and reports it paid.
func (s *ReconcileFacadeStub) ReconcilePurchase(ctx context.Context, purchaseID string) (model.PurchaseStatus, error) {
	if s.ReconcileFn != nil {
		return s.ReconcileFn(ctx, purchaseID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconciled = append(s.reconciled, purchaseID)
	return model.PurchaseStatusPaid, nil
}

// Reconciled returns ids passed to ReconcilePurchase.
func (s *ReconcileFacadeStub) Reconciled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reconciled...)
}
