package paypal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/polkiloo/paygate/internal/domain/model"
)

const (
	tokenSkew             = 60 * time.Second
	defaultRefreshTimeout = 10 * time.Second
)

// CachingClient reuses access token until shortly before expiry.
type CachingClient struct {
	Client

	mu      sync.Mutex
	cred    *model.Credential
	expires time.Time
	group   singleflight.Group
	timeout time.Duration
	now     func() time.Time
}

// NewCachingClient wraps client with token cache. A shared refresh is bounded by refreshTimeout
// and does not inherit cancellation of the caller that started it.
func NewCachingClient(client Client, refreshTimeout time.Duration) *CachingClient {
	if refreshTimeout <= 0 {
		refreshTimeout = defaultRefreshTimeout
	}
	return &CachingClient{Client: client, timeout: refreshTimeout, now: time.Now}
}

// Authenticate returns cached credential or fetches a new one. Concurrent refreshes share one request.
func (c *CachingClient) Authenticate(ctx context.Context) (*model.Credential, error) {
	if cred, ok := c.cached(); ok {
		return cred, nil
	}

	ch := c.group.DoChan("token", func() (any, error) {
		if cred, ok := c.cached(); ok {
			return cred, nil
		}
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		cred, err := c.Client.Authenticate(refreshCtx)
		if err != nil {
			return nil, err
		}
		c.store(cred)
		return cred, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Credential), nil
	}
}

// CreateOrder delegates and drops cached token on 401.
func (c *CachingClient) CreateOrder(ctx context.Context, cred *model.Credential, req model.OrderRequest) (*model.RemoteOrder, error) {
	order, err := c.Client.CreateOrder(ctx, cred, req)
	c.observe(err)
	return order, err
}

// FetchOrder delegates and drops cached token on 401.
func (c *CachingClient) FetchOrder(ctx context.Context, cred *model.Credential, orderID string) (*model.RemoteOrder, error) {
	order, err := c.Client.FetchOrder(ctx, cred, orderID)
	c.observe(err)
	return order, err
}

// CaptureOrder delegates and drops cached token on 401.
func (c *CachingClient) CaptureOrder(ctx context.Context, cred *model.Credential, orderID string) (*model.RemoteOrder, error) {
	order, err := c.Client.CaptureOrder(ctx, cred, orderID)
	c.observe(err)
	return order, err
}

// Invalidate forgets cached token.
func (c *CachingClient) Invalidate() {
	c.mu.Lock()
	c.cred = nil
	c.expires = time.Time{}
	c.mu.Unlock()
}

func (c *CachingClient) cached() (*model.Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cred == nil || !c.now().Before(c.expires) {
		return nil, false
	}
	return c.cred, true
}

func (c *CachingClient) store(cred *model.Credential) {
	ttl := time.Duration(cred.ExpiresIn)*time.Second - tokenSkew
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.cred = cred
	c.expires = c.now().Add(ttl)
	c.mu.Unlock()
}

func (c *CachingClient) observe(err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		c.Invalidate()
	}
}
