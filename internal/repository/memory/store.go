// Package memory provides in-process implementations of the repository
// interfaces. They keep the soft-delete and uniqueness rules of the SQL
// schema so services can be exercised without a database.
package memory

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

type tables struct {
	users      map[uuid.UUID]domain.User
	tokens     map[uuid.UUID]domain.RefreshToken
	categories map[uuid.UUID]domain.Category
	products   map[uuid.UUID]domain.Product
	reviews    map[uuid.UUID]domain.Review
	orders     map[uuid.UUID]domain.Order
	items      map[uuid.UUID]domain.OrderItem
}

func (t tables) clone() tables {
	return tables{
		users:      maps.Clone(t.users),
		tokens:     maps.Clone(t.tokens),
		categories: maps.Clone(t.categories),
		products:   maps.Clone(t.products),
		reviews:    maps.Clone(t.reviews),
		orders:     maps.Clone(t.orders),
		items:      maps.Clone(t.items),
	}
}

// Store holds every table behind one lock.
type Store struct {
	mu sync.RWMutex
	t  tables

	// Now stamps soft deletes; tests may replace it.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		t: tables{
			users:      make(map[uuid.UUID]domain.User),
			tokens:     make(map[uuid.UUID]domain.RefreshToken),
			categories: make(map[uuid.UUID]domain.Category),
			products:   make(map[uuid.UUID]domain.Product),
			reviews:    make(map[uuid.UUID]domain.Review),
			orders:     make(map[uuid.UUID]domain.Order),
			items:      make(map[uuid.UUID]domain.OrderItem),
		},
		Now: time.Now,
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	b, ok := ctx.Value(txKey{}).(bool)
	return ok && b
}

func (s *Store) rlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RLock()
	}
}

func (s *Store) runlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RUnlock()
	}
}

func (s *Store) wlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Lock()
	}
}

func (s *Store) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Unlock()
	}
}

func (s *Store) deletedAt() *time.Time {
	now := s.Now()
	return &now
}

// TxManager holds the store's write lock for the whole of fn and restores the
// previous contents when fn fails.
type TxManager struct{ store *Store }

func NewTxManager(store *Store) *TxManager { return &TxManager{store: store} }

func (tx *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	snapshot := tx.store.t.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		tx.store.t = snapshot
		return err
	}
	return nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func page[T any](rows []T, pageNum, limit int) []T {
	start := (pageNum - 1) * limit
	if start >= len(rows) || start < 0 {
		return []T{}
	}
	end := min(start+limit, len(rows))
	return rows[start:end]
}
