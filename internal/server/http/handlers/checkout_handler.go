package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/paygate/internal/domain/errors"
	"github.com/polkiloo/paygate/internal/server/http/dto"
)

// CheckoutHandler manages JSON checkout endpoints.
type CheckoutHandler struct {
	facade CheckoutFacade
	logger *slog.Logger
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(facade CheckoutFacade, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{facade: facade, logger: logger}
}

// Create handles POST /api/orders.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	checkout, err := h.facade.CreateOrder(c.Request.Context(), req.ProductType)
	if err != nil {
		if domainErrors.IsClientError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("create order failed", slog.String("product_type", req.ProductType), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order could not be created"})
		return
	}

	c.JSON(http.StatusOK, dto.CreateOrderResponse{
		ApprovalURL: checkout.ApprovalURL,
		PurchaseID:  checkout.PurchaseID,
		OrderID:     checkout.OrderID,
	})
}

// Status handles GET /api/orders/status.
func (h *CheckoutHandler) Status(c *gin.Context) {
	purchaseID := c.Query("purchaseId")
	if purchaseID == "" {
		c.JSON(http.StatusOK, dto.StatusResponse{})
		return
	}

	report, err := h.facade.OrderStatus(c.Request.Context(), purchaseID)
	if err != nil {
		h.logger.Error("status query failed", slog.String("purchase_id", purchaseID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status unavailable"})
		return
	}
	if !report.Found {
		c.JSON(http.StatusOK, dto.StatusResponse{})
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{
		Found:       true,
		Status:      string(report.Status),
		ProductType: string(report.ProductType),
		OrderID:     report.OrderID,
		Amount:      report.Amount,
	})
}
