package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/paygate/internal/domain/errors"
	"github.com/polkiloo/paygate/internal/domain/model"
	"github.com/polkiloo/paygate/internal/domain/repository"
	"github.com/polkiloo/paygate/internal/events"
	"github.com/polkiloo/paygate/internal/pkg/keylock"
)

// CheckoutSettings holds values used when registering remote orders.
type CheckoutSettings struct {
	PublicBaseURL string
	Currency      string
	BrandName     string
}

// PurchaseUseCase drives purchase lifecycle: creation, redirect completion and cancellation.
type PurchaseUseCase struct {
	ledger
	gateway  Gateway
	locks    *keylock.Locker
	settings CheckoutSettings
	newID    func() string
	now      func() time.Time
}

// NewPurchaseUseCase constructs PurchaseUseCase.
func NewPurchaseUseCase(
	purchases repository.PurchaseRepository,
	gateway Gateway,
	locks *keylock.Locker,
	publisher events.Publisher,
	recorder Recorder,
	settings CheckoutSettings,
	logger *slog.Logger,
) *PurchaseUseCase {
	return &PurchaseUseCase{
		ledger:   newLedger(purchases, publisher, recorder, logger),
		gateway:  gateway,
		locks:    locks,
		settings: settings,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// CreateOrder registers remote order for product and stores created purchase.
func (u *PurchaseUseCase) CreateOrder(ctx context.Context, productType string) (*model.Checkout, error) {
	product := model.ProductType(productType)
	amount, ok := model.PriceOf(product)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrInvalidProduct, productType)
	}

	purchaseID := u.newID()

	cred, err := u.gateway.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	order, err := u.gateway.CreateOrder(ctx, cred, model.OrderRequest{
		PurchaseID: purchaseID,
		Amount:     amount,
		Currency:   u.settings.Currency,
		BrandName:  u.settings.BrandName,
		ReturnURL:  u.callbackURL("/success", purchaseID),
		CancelURL:  u.callbackURL("/cancel", purchaseID),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if order.ID == "" || order.ApproveURL == "" {
		return nil, fmt.Errorf("%w: order %q has no approval link", domainErrors.ErrGatewayResponse, order.ID)
	}

	now := u.now().UTC()
	purchase := &model.Purchase{
		ID:          purchaseID,
		OrderID:     order.ID,
		ProductType: product,
		Amount:      amount,
		Currency:    u.settings.Currency,
		Status:      model.PurchaseStatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.purchases.Create(ctx, purchase); err != nil {
		return nil, fmt.Errorf("store purchase: %w", err)
	}

	u.recorder.PurchaseCreated(string(product))
	u.logger.Info("purchase created",
		slog.String("purchase_id", purchaseID),
		slog.String("order_id", order.ID),
		slog.String("product", string(product)),
	)
	u.publish(ctx, purchase, "")

	return &model.Checkout{ApprovalURL: order.ApproveURL, PurchaseID: purchaseID, OrderID: order.ID}, nil
}

// CompleteViaRedirect captures order after buyer returns from approval page.
// Capture is attempted on every call. A failure on an already paid purchase is ignored.
func (u *PurchaseUseCase) CompleteViaRedirect(ctx context.Context, purchaseID, token string) (*model.Purchase, error) {
	unlock := u.locks.Lock(purchaseID)
	defer unlock()

	purchase, err := u.purchases.Get(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domainErrors.ErrUnknownPurchase, purchaseID)
		}
		return nil, err
	}
	if token != purchase.OrderID {
		u.logger.Warn("redirect token mismatch",
			slog.String("purchase_id", purchaseID),
			slog.String("order_id", purchase.OrderID),
		)
		return nil, domainErrors.ErrOrderMismatch
	}

	captured, err := u.capture(ctx, purchase.OrderID)
	if err != nil {
		if purchase.Status.Terminal() {
			u.logger.Info("capture failed on paid purchase, ignoring",
				slog.String("purchase_id", purchaseID),
				slog.String("order_id", purchase.OrderID),
				slog.String("error", err.Error()),
			)
			return purchase, nil
		}
		return nil, err
	}

	return u.transition(ctx, purchase, statusAfterCapture(purchase.Status, captured.Status))
}

// Cancel marks open purchase cancelled. Unknown and paid purchases are left untouched.
func (u *PurchaseUseCase) Cancel(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	unlock := u.locks.Lock(purchaseID)
	defer unlock()

	purchase, err := u.purchases.Get(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if purchase.Status.Terminal() {
		u.logger.Info("cancel ignored for paid purchase", slog.String("purchase_id", purchaseID))
		return purchase, nil
	}
	return u.transition(ctx, purchase, model.PurchaseStatusCancelled)
}

func (u *PurchaseUseCase) capture(ctx context.Context, orderID string) (*model.RemoteOrder, error) {
	cred, err := u.gateway.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture order: %w", err)
	}
	order, err := u.gateway.CaptureOrder(ctx, cred, orderID)
	if err != nil {
		return nil, fmt.Errorf("capture order: %w", err)
	}
	return order, nil
}

func (u *PurchaseUseCase) callbackURL(path, purchaseID string) string {
	return u.settings.PublicBaseURL + path + "?" + url.Values{"purchaseId": []string{purchaseID}}.Encode()
}
