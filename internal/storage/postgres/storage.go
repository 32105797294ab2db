package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/paygate/internal/domain/errors"
	"github.com/polkiloo/paygate/internal/domain/model"
	"github.com/polkiloo/paygate/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type purchaseRepository struct {
	storage *Storage
}

const purchaseColumns = `id, order_id, product_type, amount::text, currency, status, created_at, updated_at`

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Purchases returns ledger repository.
func (s *Storage) Purchases() repository.PurchaseRepository {
	return &purchaseRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS purchases (
            id TEXT PRIMARY KEY,
            order_id TEXT UNIQUE NOT NULL,
            product_type TEXT NOT NULL,
            amount NUMERIC(12, 2) NOT NULL,
            currency CHAR(3) NOT NULL,
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_open ON purchases(status, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	var (
		p      model.Purchase
		amount string
	)
	if err := row.Scan(&p.ID, &p.OrderID, &p.ProductType, &amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	p.Amount = parsed
	return &p, nil
}

func (r *purchaseRepository) Create(ctx context.Context, p *model.Purchase) error {
	const query = `INSERT INTO purchases (id, order_id, product_type, amount, currency, status, created_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.storage.pool.Exec(ctx, query, p.ID, p.OrderID, p.ProductType, p.Amount.StringFixed(2), p.Currency, p.Status, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	p.UpdatedAt = p.CreatedAt
	return nil
}

func (r *purchaseRepository) Get(ctx context.Context, id string) (*model.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id=$1`
	p, err := scanPurchase(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *purchaseRepository) CompareAndSwapStatus(ctx context.Context, id string, expected, next model.PurchaseStatus) (*model.Purchase, error) {
	selectQuery := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id=$1 FOR UPDATE`
	const updateQuery = `UPDATE purchases SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING updated_at`

	var updated *model.Purchase
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		current, err := scanPurchase(tx.QueryRow(ctx, selectQuery, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}
		if current.Status != expected {
			return fmt.Errorf("%w: have %s, want %s", domainErrors.ErrStaleStatus, current.Status, expected)
		}
		if err := tx.QueryRow(ctx, updateQuery, next, id).Scan(&current.UpdatedAt); err != nil {
			return err
		}
		current.Status = next
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *purchaseRepository) ListOpen(ctx context.Context, since time.Time, limit int) ([]model.Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
                   FROM purchases
                   WHERE status IN ('created', 'pending') AND created_at >= $1
                   ORDER BY created_at
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
