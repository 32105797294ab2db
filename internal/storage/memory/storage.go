package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/paygate/internal/domain/errors"
	"github.com/polkiloo/paygate/internal/domain/model"
	"github.com/polkiloo/paygate/internal/domain/repository"
)

// Storage keeps purchases in process memory.
type Storage struct {
	mu        sync.RWMutex
	purchases map[string]model.Purchase
	now       func() time.Time
}

var _ repository.PurchaseRepository = (*Storage)(nil)

// New creates empty in-memory ledger.
func New() *Storage {
	return &Storage{purchases: make(map[string]model.Purchase), now: time.Now}
}

func (s *Storage) Create(_ context.Context, p *model.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.purchases[p.ID]; ok {
		return domainErrors.ErrAlreadyExists
	}
	stored := *p
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.purchases[p.ID] = stored
	*p = stored
	return nil
}

func (s *Storage) Get(_ context.Context, id string) (*model.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.purchases[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &p, nil
}

func (s *Storage) CompareAndSwapStatus(_ context.Context, id string, expected, next model.PurchaseStatus) (*model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if p.Status != expected {
		return nil, fmt.Errorf("%w: have %s, want %s", domainErrors.ErrStaleStatus, p.Status, expected)
	}
	p.Status = next
	p.UpdatedAt = s.now()
	s.purchases[id] = p
	return &p, nil
}

func (s *Storage) ListOpen(_ context.Context, since time.Time, limit int) ([]model.Purchase, error) {
	s.mu.RLock()
	result := make([]model.Purchase, 0)
	for _, p := range s.purchases {
		if p.Status.Open() && !p.CreatedAt.Before(since) {
			result = append(result, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
