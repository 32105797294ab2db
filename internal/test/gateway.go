package test

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/paygate/internal/domain/model"
)

// GatewayStub simulates payment processor. Remote order statuses are kept per order id.
type GatewayStub struct {
	AuthenticateFn func(context.Context) (*model.Credential, error)
	CreateOrderFn  func(context.Context, *model.Credential, model.OrderRequest) (*model.RemoteOrder, error)
	FetchOrderFn   func(context.Context, *model.Credential, string) (*model.RemoteOrder, error)
	CaptureOrderFn func(context.Context, *model.Credential, string) (*model.RemoteOrder, error)

	// CaptureDelay holds every capture call for the given duration.
	CaptureDelay time.Duration

	AuthCalls    atomic.Int32
	CreateCalls  atomic.Int32
	FetchCalls   atomic.Int32
	CaptureCalls atomic.Int32

	mu       sync.Mutex
	statuses map[string]model.RemoteStatus
	requests []model.OrderRequest
	seq      int
}

// SetRemoteStatus sets processor-side status for order.
func (g *GatewayStub) SetRemoteStatus(orderID string, status model.RemoteStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statuses == nil {
		g.statuses = make(map[string]model.RemoteStatus)
	}
	g.statuses[orderID] = status
}

// RemoteStatus returns processor-side status for order.
func (g *GatewayStub) RemoteStatus(orderID string) model.RemoteStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statuses[orderID]
}

// Requests returns recorded create order requests.
func (g *GatewayStub) Requests() []model.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.OrderRequest(nil), g.requests...)
}

// Authenticate returns static credential unless overridden.
func (g *GatewayStub) Authenticate(ctx context.Context) (*model.Credential, error) {
	g.AuthCalls.Add(1)
	if g.AuthenticateFn != nil {
		return g.AuthenticateFn(ctx)
	}
	return &model.Credential{AccessToken: "token", TokenType: "Bearer", ExpiresIn: 3600}, nil
}

// CreateOrder registers order with sequential id unless overridden.
func (g *GatewayStub) CreateOrder(ctx context.Context, cred *model.Credential, req model.OrderRequest) (*model.RemoteOrder, error) {
	g.CreateCalls.Add(1)
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.CreateOrderFn != nil {
		return g.CreateOrderFn(ctx, cred, req)
	}

	g.mu.Lock()
	g.seq++
	id := "ORDER-" + strconv.Itoa(g.seq)
	g.mu.Unlock()
	g.SetRemoteStatus(id, model.RemoteStatusCreated)
	return &model.RemoteOrder{
		ID:         id,
		Status:     model.RemoteStatusCreated,
		ApproveURL: "https://processor.test/checkoutnow?token=" + id,
		CustomID:   req.PurchaseID,
	}, nil
}

// FetchOrder reports stored remote status unless overridden.
func (g *GatewayStub) FetchOrder(ctx context.Context, cred *model.Credential, orderID string) (*model.RemoteOrder, error) {
	g.FetchCalls.Add(1)
	if g.FetchOrderFn != nil {
		return g.FetchOrderFn(ctx, cred, orderID)
	}
	return &model.RemoteOrder{ID: orderID, Status: g.RemoteStatus(orderID)}, nil
}

// CaptureOrder completes approved orders unless overridden. Capturing anything else is reported as completed too,
// matching a processor that treats repeated capture as a no-op.
func (g *GatewayStub) CaptureOrder(ctx context.Context, cred *model.Credential, orderID string) (*model.RemoteOrder, error) {
	g.CaptureCalls.Add(1)
	if g.CaptureDelay > 0 {
		time.Sleep(g.CaptureDelay)
	}
	if g.CaptureOrderFn != nil {
		return g.CaptureOrderFn(ctx, cred, orderID)
	}
	g.SetRemoteStatus(orderID, model.RemoteStatusCompleted)
	return &model.RemoteOrder{ID: orderID, Status: model.RemoteStatusCompleted, CaptureID: "CAP-" + orderID}, nil
}
