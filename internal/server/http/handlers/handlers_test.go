package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/paygate/internal/domain/errors"
	"github.com/polkiloo/paygate/internal/domain/model"
	"github.com/polkiloo/paygate/internal/server/http/dto"
	testhelpers "github.com/polkiloo/paygate/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = slog.New(slog.NewJSONHandler(io.Discard, nil))

func performRequest(t *testing.T, method, target string, handler gin.HandlerFunc, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.SetHTMLTemplate(Pages)
	path := target
	if i := strings.IndexByte(target, '?'); i >= 0 {
		path = target[:i]
	}
	router.Handle(method, path, handler)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parsePage(t *testing.T, resp *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html response, got %q", ct)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestCheckoutHandlerCreate(t *testing.T) {
	var gotProduct string
	facade := testhelpers.CheckoutFacadeStub{CreateFn: func(_ context.Context, product string) (*model.Checkout, error) {
		gotProduct = product
		return &model.Checkout{ApprovalURL: "https://processor.test/approve?token=O-9", PurchaseID: "p-9", OrderID: "O-9"}, nil
	}}
	body, _ := json.Marshal(dto.CreateOrderRequest{ProductType: "five"})
	resp := performRequest(t, http.MethodPost, "/api/orders", NewCheckoutHandler(facade, discard).Create, body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotProduct != "five" {
		t.Fatalf("unexpected product passed to facade: %q", gotProduct)
	}

	var decoded dto.CreateOrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.PurchaseID != "p-9" || decoded.OrderID != "O-9" || decoded.ApprovalURL == "" {
		t.Fatalf("unexpected response %+v", decoded)
	}
}

func TestCheckoutHandlerCreateFailures(t *testing.T) {
	tests := []struct {
		name   string
		facade testhelpers.CheckoutFacadeStub
		body   []byte
		status int
	}{
		{name: "bad json", body: []byte("not json"), status: http.StatusBadRequest},
		{name: "invalid product", body: []byte(`{"productType":"ten"}`), facade: testhelpers.CheckoutFacadeStub{CreateFn: func(context.Context, string) (*model.Checkout, error) {
			return nil, domainErrors.ErrInvalidProduct
		}}, status: http.StatusBadRequest},
		{name: "auth", body: []byte(`{"productType":"single"}`), facade: testhelpers.CheckoutFacadeStub{CreateFn: func(context.Context, string) (*model.Checkout, error) {
			return nil, domainErrors.ErrAuth
		}}, status: http.StatusInternalServerError},
		{name: "internal", body: []byte(`{"productType":"single"}`), facade: testhelpers.CheckoutFacadeStub{CreateFn: func(context.Context, string) (*model.Checkout, error) {
			return nil, errors.New("boom")
		}}, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodPost, "/api/orders", NewCheckoutHandler(tt.facade, discard).Create, tt.body)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestCheckoutHandlerStatus(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/api/orders/status?purchaseId=p-1", NewCheckoutHandler(testhelpers.CheckoutFacadeStub{}, discard).Status, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var decoded dto.StatusResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !decoded.Found || decoded.Status != "created" || decoded.ProductType != "single" || decoded.Amount != "2.50" {
		t.Fatalf("unexpected status response %+v", decoded)
	}
}

func TestCheckoutHandlerStatusNotFound(t *testing.T) {
	facade := testhelpers.CheckoutFacadeStub{StatusFn: func(context.Context, string) (model.StatusReport, error) {
		return model.StatusReport{}, nil
	}}
	for _, target := range []string{"/api/orders/status?purchaseId=missing", "/api/orders/status"} {
		resp := performRequest(t, http.MethodGet, target, NewCheckoutHandler(facade, discard).Status, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", target, resp.Code)
		}
		if strings.TrimSpace(resp.Body.String()) != `{"found":false}` {
			t.Fatalf("%s: unexpected body %s", target, resp.Body.String())
		}
	}
}

func TestCheckoutHandlerStatusStorageFailure(t *testing.T) {
	facade := testhelpers.CheckoutFacadeStub{StatusFn: func(context.Context, string) (model.StatusReport, error) {
		return model.StatusReport{}, errors.New("db down")
	}}
	resp := performRequest(t, http.MethodGet, "/api/orders/status?purchaseId=p-1", NewCheckoutHandler(facade, discard).Status, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}

func TestPageHandlerSuccess(t *testing.T) {
	var gotID, gotToken string
	facade := testhelpers.CheckoutFacadeStub{CompleteFn: func(_ context.Context, id, token string) (*model.Purchase, error) {
		gotID, gotToken = id, token
		amount, _ := model.PriceOf(model.ProductFive)
		return &model.Purchase{ID: id, OrderID: token, ProductType: model.ProductFive, Amount: amount, Currency: "USD", Status: model.PurchaseStatusPaid}, nil
	}}
	resp := performRequest(t, http.MethodGet, "/success?token=O-1&purchaseId=p-1", NewPageHandler(facade, discard).Success, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotID != "p-1" || gotToken != "O-1" {
		t.Fatalf("unexpected facade arguments %q %q", gotID, gotToken)
	}

	doc := parsePage(t, resp)
	if status, _ := doc.Find("#result").Attr("data-status"); status != "paid" {
		t.Fatalf("unexpected page status %q", status)
	}
	if got := doc.Find("#amount").Text(); got != "10.50 USD" {
		t.Fatalf("unexpected amount %q", got)
	}
	if got := doc.Find("h1").Text(); got != "Thank you!" {
		t.Fatalf("unexpected heading %q", got)
	}
}

func TestPageHandlerSuccessPending(t *testing.T) {
	facade := testhelpers.CheckoutFacadeStub{CompleteFn: func(_ context.Context, id, token string) (*model.Purchase, error) {
		amount, _ := model.PriceOf(model.ProductSingle)
		return &model.Purchase{ID: id, OrderID: token, Amount: amount, Currency: "USD", Status: model.PurchaseStatusPending}, nil
	}}
	resp := performRequest(t, http.MethodGet, "/success?token=O-1&purchaseId=p-1", NewPageHandler(facade, discard).Success, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	doc := parsePage(t, resp)
	if got := doc.Find("h1").Text(); got != "Payment in progress" {
		t.Fatalf("unexpected heading %q", got)
	}
}

func TestPageHandlerSuccessFailures(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{name: "missing token", target: "/success?purchaseId=p-1", status: http.StatusBadRequest},
		{name: "missing purchase", target: "/success?token=O-1", status: http.StatusBadRequest},
		{name: "unknown purchase", target: "/success?token=O-1&purchaseId=p-1", err: domainErrors.ErrUnknownPurchase, status: http.StatusBadRequest},
		{name: "mismatch", target: "/success?token=O-2&purchaseId=p-1", err: domainErrors.ErrOrderMismatch, status: http.StatusBadRequest},
		{name: "storage", target: "/success?token=O-1&purchaseId=p-1", err: errors.New("db down"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facade := testhelpers.CheckoutFacadeStub{CompleteFn: func(context.Context, string, string) (*model.Purchase, error) {
				if tt.err == nil {
					t.Fatal("facade must not be called")
				}
				return nil, tt.err
			}}
			resp := performRequest(t, http.MethodGet, tt.target, NewPageHandler(facade, discard).Success, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			doc := parsePage(t, resp)
			if status, _ := doc.Find("#result").Attr("data-status"); status != "error" {
				t.Fatalf("expected error page, got %q", status)
			}
		})
	}
}

func TestPageHandlerCancel(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/cancel?purchaseId=p-1", NewPageHandler(testhelpers.CheckoutFacadeStub{}, discard).Cancel, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	doc := parsePage(t, resp)
	if status, _ := doc.Find("#result").Attr("data-status"); status != "cancelled" {
		t.Fatalf("unexpected page status %q", status)
	}
	if got := doc.Find("#purchase-id").Text(); got != "p-1" {
		t.Fatalf("unexpected purchase id %q", got)
	}
}

func TestPageHandlerCancelPaidAndUnknown(t *testing.T) {
	paid := testhelpers.CheckoutFacadeStub{CancelFn: func(_ context.Context, id string) (*model.Purchase, error) {
		return &model.Purchase{ID: id, Status: model.PurchaseStatusPaid}, nil
	}}
	resp := performRequest(t, http.MethodGet, "/cancel?purchaseId=p-1", NewPageHandler(paid, discard).Cancel, nil)
	doc := parsePage(t, resp)
	if got := doc.Find("h1").Text(); got != "Already paid" {
		t.Fatalf("unexpected heading %q", got)
	}

	unknown := testhelpers.CheckoutFacadeStub{CancelFn: func(context.Context, string) (*model.Purchase, error) {
		return nil, nil
	}}
	resp = performRequest(t, http.MethodGet, "/cancel?purchaseId=missing", NewPageHandler(unknown, discard).Cancel, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if got := parsePage(t, resp).Find("h1").Text(); got != "Payment cancelled" {
		t.Fatalf("unexpected heading %q", got)
	}

	broken := testhelpers.CheckoutFacadeStub{CancelFn: func(context.Context, string) (*model.Purchase, error) {
		return nil, errors.New("db down")
	}}
	resp = performRequest(t, http.MethodGet, "/cancel?purchaseId=p-1", NewPageHandler(broken, discard).Cancel, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}

type stubLedger struct{ err error }

func (p stubLedger) HealthCheck(context.Context) error { return p.err }

func TestHealthz(t *testing.T) {
	tests := []struct {
		name   string
		ledger HealthChecker
		status int
	}{
		{name: "no checker", status: http.StatusOK},
		{name: "ledger up", ledger: stubLedger{}, status: http.StatusOK},
		{name: "ledger down", ledger: stubLedger{err: errors.New("connection refused")}, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodGet, "/healthz", NewHealthHandler(tt.ledger, discard).Healthz, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

var _ CheckoutFacade = testhelpers.CheckoutFacadeStub{}
