package router

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/paygate/internal/metrics"
	"github.com/polkiloo/paygate/internal/server/http/dto"
	testhelpers "github.com/polkiloo/paygate/internal/test"
)

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	engine := Setup(Params{Facade: testhelpers.CheckoutFacadeStub{}, Logger: logger, Metrics: metrics.New()})

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte(`{"productType":"single"}`))
	_ = gz.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/orders", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for create, got %d", resp.Code)
	}
	var created dto.CreateOrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil || created.PurchaseID == "" {
		t.Fatalf("unexpected create response %s err=%v", resp.Body.String(), err)
	}

	for _, target := range []string{
		"/api/orders/status?purchaseId=p-1",
		"/success?token=O-1&purchaseId=p-1",
		"/cancel?purchaseId=p-1",
		"/healthz",
	} {
		resp = httptest.NewRecorder()
		engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected status 200 for %s, got %d", target, resp.Code)
		}
	}

	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for metrics, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `paygate_http_requests_total{code="200",route="/api/orders"} 1`) {
		t.Fatalf("expected request counter in exposition, got %s", resp.Body.String())
	}
}

func TestSetupCompressesResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	engine := Setup(Params{Facade: testhelpers.CheckoutFacadeStub{}, Logger: logger})

	req := httptest.NewRequest(http.MethodGet, "/cancel?purchaseId=p-1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoded response, headers %v", resp.Header())
	}

	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected metrics route to be absent without collectors, got %d", resp.Code)
	}
}

type downLedger struct{}

func (downLedger) HealthCheck(context.Context) error { return errors.New("dial tcp: connection refused") }

func TestHealthzReflectsLedger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	engine := Setup(Params{Facade: testhelpers.CheckoutFacadeStub{}, Logger: logger, Ledger: downLedger{}})

	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when ledger is down, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"ledger":"down"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}
