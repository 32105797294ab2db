package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/paygate/internal/domain/errors"
	"github.com/polkiloo/paygate/internal/domain/model"
)

// Operation names used in errors, spans and metrics.
const (
	OpAuthenticate = "authenticate"
	OpCreateOrder  = "create_order"
	OpFetchOrder   = "fetch_order"
	OpCaptureOrder = "capture_order"
)

// Client exposes payment processor operations.
type Client interface {
	Authenticate(ctx context.Context) (*model.Credential, error)
	CreateOrder(ctx context.Context, cred *model.Credential, req model.OrderRequest) (*model.RemoteOrder, error)
	FetchOrder(ctx context.Context, cred *model.Credential, orderID string) (*model.RemoteOrder, error)
	CaptureOrder(ctx context.Context, cred *model.Credential, orderID string) (*model.RemoteOrder, error)
}

// Observer receives processor call outcomes.
type Observer interface {
	GatewayCall(operation string, started time.Time, err error)
}

type nopObserver struct{}

func (nopObserver) GatewayCall(string, time.Time, error) {}

// Options configures HTTPClient.
type Options struct {
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Observer     Observer
	Tracer       trace.Tracer
}

// HTTPClient implements Client via the processor REST API.
type HTTPClient struct {
	baseURL      *url.URL
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger
	observer     Observer
	tracer       trace.Tracer

	captureMu       sync.Mutex
	captureAttempts map[string]int
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type purchaseUnit struct {
	CustomID string `json:"custom_id,omitempty"`
	Payments struct {
		Captures []capture `json:"captures"`
	} `json:"payments"`
}

// orderResponse mirrors order payload returned by processor.
type orderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Links         []link         `json:"links"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type orderUnit struct {
	CustomID    string `json:"custom_id"`
	ReferenceID string `json:"reference_id"`
	Amount      amount `json:"amount"`
}

type applicationContext struct {
	BrandName          string `json:"brand_name,omitempty"`
	UserAction         string `json:"user_action"`
	ShippingPreference string `json:"shipping_preference"`
	ReturnURL          string `json:"return_url"`
	CancelURL          string `json:"cancel_url"`
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []orderUnit        `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

// NewHTTPClient creates processor client.
func NewHTTPClient(baseURL string, logger *slog.Logger, opts Options) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse processor url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("processor url must be absolute")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/polkiloo/paygate/internal/adapter/paypal")
	}
	return &HTTPClient{
		baseURL:      parsed,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		logger:       logger,
		observer:     opts.Observer,
		tracer:       opts.Tracer,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}, nil
}

// Authenticate exchanges client credentials for bearer token.
func (c *HTTPClient) Authenticate(ctx context.Context) (cred *model.Credential, err error) {
	ctx, finish := c.begin(ctx, OpAuthenticate)
	defer func() { finish(err) }()

	form := url.Values{"grant_type": []string{"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/oauth2/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, transportError(OpAuthenticate, domainErrors.ErrAuth, err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var data tokenResponse
	if err := c.do(req, OpAuthenticate, domainErrors.ErrAuth, &data); err != nil {
		return nil, err
	}
	if data.AccessToken == "" {
		return nil, &APIError{Op: OpAuthenticate, Message: "empty access token", kind: domainErrors.ErrAuth}
	}
	return &model.Credential{AccessToken: data.AccessToken, TokenType: data.TokenType, ExpiresIn: data.ExpiresIn}, nil
}

// CreateOrder registers capture-intent order for the purchase.
func (c *HTTPClient) CreateOrder(ctx context.Context, cred *model.Credential, in model.OrderRequest) (order *model.RemoteOrder, err error) {
	ctx, finish := c.begin(ctx, OpCreateOrder, attribute.String("purchase.id", in.PurchaseID))
	defer func() { finish(err) }()

	payload := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []orderUnit{{
			CustomID:    in.PurchaseID,
			ReferenceID: in.PurchaseID,
			Amount:      amount{CurrencyCode: in.Currency, Value: in.Amount.StringFixed(2)},
		}},
		ApplicationContext: applicationContext{
			BrandName:          in.BrandName,
			UserAction:         "PAY_NOW",
			ShippingPreference: "NO_SHIPPING",
			ReturnURL:          in.ReturnURL,
			CancelURL:          in.CancelURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, transportError(OpCreateOrder, domainErrors.ErrGatewayResponse, err)
	}

	req, err := c.newAuthorizedRequest(ctx, cred, http.MethodPost, "/v2/checkout/orders", body)
	if err != nil {
		return nil, transportError(OpCreateOrder, domainErrors.ErrGatewayResponse, err)
	}
	req.Header.Set("PayPal-Request-Id", in.PurchaseID)

	var data orderResponse
	if err := c.do(req, OpCreateOrder, domainErrors.ErrGatewayResponse, &data); err != nil {
		return nil, err
	}
	return toRemoteOrder(data), nil
}

// FetchOrder returns current processor view of the order.
func (c *HTTPClient) FetchOrder(ctx context.Context, cred *model.Credential, orderID string) (order *model.RemoteOrder, err error) {
	ctx, finish := c.begin(ctx, OpFetchOrder, attribute.String("order.id", orderID))
	defer func() { finish(err) }()

	req, err := c.newAuthorizedRequest(ctx, cred, http.MethodGet, path.Join("/v2/checkout/orders", url.PathEscape(orderID)), nil)
	if err != nil {
		return nil, transportError(OpFetchOrder, domainErrors.ErrRemoteQuery, err)
	}

	var data orderResponse
	if err := c.do(req, OpFetchOrder, domainErrors.ErrRemoteQuery, &data); err != nil {
		return nil, err
	}
	return toRemoteOrder(data), nil
}

// CaptureOrder finalizes funds for approved order. Retries after a timeout or a 5xx reuse the
// request id so the processor replays the first outcome. A 4xx answer (for example a declined
// instrument) is final for that id, so the next capture of the order gets a fresh one and a
// buyer who re-approved with another funding source is not served the stored failure.
func (c *HTTPClient) CaptureOrder(ctx context.Context, cred *model.Credential, orderID string) (order *model.RemoteOrder, err error) {
	ctx, finish := c.begin(ctx, OpCaptureOrder, attribute.String("order.id", orderID))
	defer func() { finish(err) }()

	req, err := c.newAuthorizedRequest(ctx, cred, http.MethodPost, path.Join("/v2/checkout/orders", url.PathEscape(orderID), "capture"), []byte("{}"))
	if err != nil {
		return nil, transportError(OpCaptureOrder, domainErrors.ErrRemoteCapture, err)
	}
	req.Header.Set("PayPal-Request-Id", c.captureRequestID(orderID))

	var data orderResponse
	if err := c.do(req, OpCaptureOrder, domainErrors.ErrRemoteCapture, &data); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			c.advanceCaptureAttempt(orderID)
		}
		return nil, err
	}
	return toRemoteOrder(data), nil
}

func (c *HTTPClient) captureRequestID(orderID string) string {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	return fmt.Sprintf("capture-%s-%d", orderID, c.captureAttempts[orderID]+1)
}

func (c *HTTPClient) advanceCaptureAttempt(orderID string) {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	if c.captureAttempts == nil {
		c.captureAttempts = make(map[string]int)
	}
	c.captureAttempts[orderID]++
}

func (c *HTTPClient) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := c.tracer.Start(ctx, "paypal."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.observer.GatewayCall(op, started, err)
	}
}

func (c *HTTPClient) endpoint(p string) string {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)
	return endpoint.String()
}

func (c *HTTPClient) newAuthorizedRequest(ctx context.Context, cred *model.Credential, method, p string, body []byte) (*http.Request, error) {
	if cred == nil || cred.AccessToken == "" {
		return nil, fmt.Errorf("missing credential")
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(p), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *HTTPClient) do(req *http.Request, op string, kind error, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, kind, err)
	}
	defer resp.Body.Close()

	trace.SpanFromContext(req.Context()).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(op, kind, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(op, kind, resp.StatusCode, body)
		c.logger.Error("processor request failed",
			slog.String("operation", op),
			slog.Int("status", resp.StatusCode),
			slog.String("name", apiErr.Name),
			slog.String("debug_id", apiErr.DebugID),
		)
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response body", kind: kind, cause: err}
	}
	return nil
}

func toRemoteOrder(data orderResponse) *model.RemoteOrder {
	order := &model.RemoteOrder{
		ID:     data.ID,
		Status: model.RemoteStatus(strings.ToLower(data.Status)),
	}
	for _, l := range data.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			order.ApproveURL = l.Href
			break
		}
	}
	for _, unit := range data.PurchaseUnits {
		if order.CustomID == "" {
			order.CustomID = unit.CustomID
		}
		for _, c := range unit.Payments.Captures {
			if order.CaptureID == "" {
				order.CaptureID = c.ID
			}
		}
	}
	return order
}
