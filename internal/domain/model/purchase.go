package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus describes purchase lifecycle.
type PurchaseStatus string

const (
	PurchaseStatusCreated   PurchaseStatus = "created"
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusPaid      PurchaseStatus = "paid"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseStatusPaid
}

// Open reports whether the purchase still waits for settlement.
func (s PurchaseStatus) Open() bool {
	return s == PurchaseStatusCreated || s == PurchaseStatusPending
}

// ProductType identifies a catalog entry.
type ProductType string

const (
	ProductSingle ProductType = "single"
	ProductFive   ProductType = "five"
)

var catalog = map[ProductType]decimal.Decimal{
	ProductSingle: decimal.RequireFromString("2.50"),
	ProductFive:   decimal.RequireFromString("10.50"),
}

// PriceOf returns the fixed catalog price for product.
func PriceOf(product ProductType) (decimal.Decimal, bool) {
	price, ok := catalog[product]
	return price, ok
}

// Purchase is a single purchase attempt tracked by the ledger.
type Purchase struct {
	ID          string
	OrderID     string
	ProductType ProductType
	Amount      decimal.Decimal
	Currency    string
	Status      PurchaseStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AmountString renders amount with two decimal places.
func (p Purchase) AmountString() string {
	return p.Amount.StringFixed(2)
}
