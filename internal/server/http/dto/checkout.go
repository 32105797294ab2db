package dto

// CreateOrderRequest describes checkout creation payload.
type CreateOrderRequest struct {
	ProductType string `json:"productType"`
}

// CreateOrderResponse carries the approval link for the buyer.
type CreateOrderResponse struct {
	ApprovalURL string `json:"approvalUrl"`
	PurchaseID  string `json:"purchaseId"`
	OrderID     string `json:"orderId"`
}

// StatusResponse reports reconciled purchase status.
type StatusResponse struct {
	Found       bool   `json:"found"`
	Status      string `json:"status,omitempty"`
	ProductType string `json:"productType,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
	Amount      string `json:"amount,omitempty"`
}
