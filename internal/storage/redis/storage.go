package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/paygate/internal/domain/errors"
	"github.com/polkiloo/paygate/internal/domain/model"
	"github.com/polkiloo/paygate/internal/domain/repository"
)

const (
	purchaseKeyPrefix = "paygate:purchase:"
	openSetKey        = "paygate:purchases:open"
)

// createScript stores purchase hash unless key exists and indexes it in open set.
// KEYS[1] purchase hash, KEYS[2] open set. ARGV: id, order_id, product_type, amount,
// currency, status, created_at, score.
const createScript = `
if redis.call('exists', KEYS[1]) == 1 then
    return 0
end
redis.call('hset', KEYS[1],
    'id', ARGV[1], 'order_id', ARGV[2], 'product_type', ARGV[3], 'amount', ARGV[4],
    'currency', ARGV[5], 'status', ARGV[6], 'created_at', ARGV[7], 'updated_at', ARGV[7])
redis.call('zadd', KEYS[2], ARGV[8], ARGV[1])
return 1
`

// casScript swaps status when current value matches.
// ARGV: expected, next, updated_at, id, keep_open ("1" or "0").
// Returns 1 applied, 0 missing, -1 stale.
const casScript = `
local current = redis.call('hget', KEYS[1], 'status')
if not current then
    return 0
end
if current ~= ARGV[1] then
    return -1
end
redis.call('hset', KEYS[1], 'status', ARGV[2], 'updated_at', ARGV[3])
if ARGV[5] == '0' then
    redis.call('zrem', KEYS[2], ARGV[4])
end
return 1
`

// Storage keeps purchases as Redis hashes.
type Storage struct {
	client goredis.UniversalClient
	logger *slog.Logger
	now    func() time.Time
}

var _ repository.PurchaseRepository = (*Storage)(nil)

// Options configures Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and verifies connectivity.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Storage, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps existing client.
func NewWithClient(client goredis.UniversalClient, logger *slog.Logger) *Storage {
	return &Storage{client: client, logger: logger, now: time.Now}
}

// Close releases connection pool.
func (s *Storage) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// HealthCheck verifies Redis connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func purchaseKey(id string) string {
	return purchaseKeyPrefix + id
}

func (s *Storage) Create(ctx context.Context, p *model.Purchase) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	created := p.CreatedAt.Format(time.RFC3339Nano)
	res, err := s.client.Eval(ctx, createScript, []string{purchaseKey(p.ID), openSetKey},
		p.ID, p.OrderID, string(p.ProductType), p.Amount.StringFixed(2),
		p.Currency, string(p.Status), created, strconv.FormatInt(p.CreatedAt.UnixMilli(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("create purchase: %w", err)
	}
	if res == 0 {
		return domainErrors.ErrAlreadyExists
	}
	p.UpdatedAt = p.CreatedAt
	return nil
}

func (s *Storage) Get(ctx context.Context, id string) (*model.Purchase, error) {
	fields, err := s.client.HGetAll(ctx, purchaseKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	if len(fields) == 0 {
		return nil, domainErrors.ErrNotFound
	}
	return decodePurchase(fields)
}

func (s *Storage) CompareAndSwapStatus(ctx context.Context, id string, expected, next model.PurchaseStatus) (*model.Purchase, error) {
	keepOpen := "0"
	if next.Open() {
		keepOpen = "1"
	}
	res, err := s.client.Eval(ctx, casScript, []string{purchaseKey(id), openSetKey},
		string(expected), string(next), s.now().UTC().Format(time.RFC3339Nano), id, keepOpen,
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("swap purchase status: %w", err)
	}
	switch res {
	case 1:
		return s.Get(ctx, id)
	case 0:
		return nil, domainErrors.ErrNotFound
	default:
		return nil, fmt.Errorf("%w: want %s", domainErrors.ErrStaleStatus, expected)
	}
}

func (s *Storage) ListOpen(ctx context.Context, since time.Time, limit int) ([]model.Purchase, error) {
	ids, err := s.client.ZRangeByScore(ctx, openSetKey, &goredis.ZRangeBy{
		Min:   strconv.FormatInt(since.UnixMilli(), 10),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list open purchases: %w", err)
	}

	result := make([]model.Purchase, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if errors.Is(err, domainErrors.ErrNotFound) {
			s.logger.Warn("open index references missing purchase", slog.String("purchase_id", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		if !p.Status.Open() {
			continue
		}
		result = append(result, *p)
	}
	return result, nil
}

func decodePurchase(fields map[string]string) (*model.Purchase, error) {
	amount, err := decimal.NewFromString(fields["amount"])
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", fields["amount"], err)
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &model.Purchase{
		ID:          fields["id"],
		OrderID:     fields["order_id"],
		ProductType: model.ProductType(fields["product_type"]),
		Amount:      amount,
		Currency:    fields["currency"],
		Status:      model.PurchaseStatus(fields["status"]),
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}
