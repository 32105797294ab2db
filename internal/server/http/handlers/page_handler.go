package handlers

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/paygate/internal/domain/errors"
	"github.com/polkiloo/paygate/internal/domain/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages holds the buyer-facing templates; the router installs them with SetHTMLTemplate.
var Pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	PurchaseID string
	OrderID    string
	Amount     string
	Status     string
	Message    string
}

// PageHandler renders buyer-facing redirect pages.
type PageHandler struct {
	facade CheckoutFacade
	logger *slog.Logger
}

// NewPageHandler constructs PageHandler.
func NewPageHandler(facade CheckoutFacade, logger *slog.Logger) *PageHandler {
	return &PageHandler{facade: facade, logger: logger}
}

// Success handles GET /success after the buyer approved the order.
func (h *PageHandler) Success(c *gin.Context) {
	purchaseID := c.Query("purchaseId")
	token := c.Query("token")
	if purchaseID == "" || token == "" {
		c.HTML(http.StatusBadRequest, "error.html", pageData{Message: "Missing purchase reference."})
		return
	}

	purchase, err := h.facade.CompleteOrder(c.Request.Context(), purchaseID, token)
	if err != nil {
		if domainErrors.IsClientError(err) {
			c.HTML(http.StatusBadRequest, "error.html", pageData{PurchaseID: purchaseID, Message: "This payment link is not valid."})
			return
		}
		h.logger.Error("complete order failed", slog.String("purchase_id", purchaseID), slog.String("error", err.Error()))
		c.HTML(http.StatusInternalServerError, "error.html", pageData{PurchaseID: purchaseID, Message: "We could not confirm your payment yet."})
		return
	}

	c.HTML(http.StatusOK, "success.html", dataOf(purchase))
}

// Cancel handles GET /cancel when the buyer abandoned the approval.
func (h *PageHandler) Cancel(c *gin.Context) {
	purchaseID := c.Query("purchaseId")
	if purchaseID == "" {
		c.HTML(http.StatusOK, "cancel.html", pageData{})
		return
	}

	purchase, err := h.facade.CancelOrder(c.Request.Context(), purchaseID)
	if err != nil {
		h.logger.Error("cancel order failed", slog.String("purchase_id", purchaseID), slog.String("error", err.Error()))
		c.HTML(http.StatusInternalServerError, "error.html", pageData{PurchaseID: purchaseID, Message: "We could not record the cancellation."})
		return
	}
	if purchase == nil {
		c.HTML(http.StatusOK, "cancel.html", pageData{PurchaseID: purchaseID})
		return
	}

	c.HTML(http.StatusOK, "cancel.html", dataOf(purchase))
}

func dataOf(p *model.Purchase) pageData {
	return pageData{
		PurchaseID: p.ID,
		OrderID:    p.OrderID,
		Amount:     p.AmountString() + " " + p.Currency,
		Status:     string(p.Status),
	}
}
