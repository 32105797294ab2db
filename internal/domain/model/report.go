package model

// Checkout is returned to the initiator after order creation.
type Checkout struct {
	ApprovalURL string
	PurchaseID  string
	OrderID     string
}

// StatusReport is the answer to a status poll. Zero value means purchase not found.
type StatusReport struct {
	Found       bool
	Status      PurchaseStatus
	ProductType ProductType
	OrderID     string
	Amount      string
}

// ReportOf builds found report for purchase.
func ReportOf(p *Purchase) StatusReport {
	return StatusReport{
		Found:       true,
		Status:      p.Status,
		ProductType: p.ProductType,
		OrderID:     p.OrderID,
		Amount:      p.AmountString(),
	}
}
