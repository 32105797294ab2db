package model

import "github.com/shopspring/decimal"

// RemoteStatus is the processor-side order status, lower-cased.
type RemoteStatus string

const (
	RemoteStatusCreated             RemoteStatus = "created"
	RemoteStatusSaved               RemoteStatus = "saved"
	RemoteStatusApproved            RemoteStatus = "approved"
	RemoteStatusVoided              RemoteStatus = "voided"
	RemoteStatusCompleted           RemoteStatus = "completed"
	RemoteStatusPayerActionRequired RemoteStatus = "payer_action_required"
)

// RemoteOrder is the subset of processor order details the service relies on.
type RemoteOrder struct {
	ID         string
	Status     RemoteStatus
	ApproveURL string
	CaptureID  string
	CustomID   string
}

// OrderRequest describes a processor order to create.
type OrderRequest struct {
	PurchaseID string
	Amount     decimal.Decimal
	Currency   string
	BrandName  string
	ReturnURL  string
	CancelURL  string
}

// Credential is a short-lived bearer token issued by the processor.
type Credential struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
}
