// internal/adapters/memory/store.go
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// Store is an in-process backend for items, customers and sales. Row level
// locks are emulated with keyed locks that a sale transaction holds until it
// commits or rolls back.
type Store struct {
	mu        sync.RWMutex
	items     map[int64]*domain.Item
	customers map[int64]*domain.Customer
	phones    map[string]int64
	sales     []*domain.Sale

	nextItemID     int64
	nextCustomerID int64
	nextSaleID     int64

	locks  *keyedLocks
	now    func() time.Time
	logger *slog.Logger
}

var (
	_ ports.InventoryStore     = (*Store)(nil)
	_ ports.SaleLedger         = (*Store)(nil)
	_ ports.SaleTransactor     = (*Store)(nil)
	_ ports.CustomerRepository = (*Store)(nil)
	_ ports.ReportStore        = (*Store)(nil)
	_ ports.Database           = (*Store)(nil)
)

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store
func NewStore(logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		items:     make(map[int64]*domain.Item),
		customers: make(map[int64]*domain.Customer),
		phones:    make(map[string]int64),
		locks:     newKeyedLocks(),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With(slog.String("component", "memory_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping always succeeds for the in-process store
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Health returns store statistics
func (s *Store) Health(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"status":    "healthy",
		"driver":    "memory",
		"items":     len(s.items),
		"customers": len(s.customers),
		"sales":     len(s.sales),
		"locks":     s.locks.held(),
	}
}

func itemKey(id int64) string {
	return "item:" + formatID(id)
}

func customerKey(phone string) string {
	return "customer:" + phone
}

// keyedLocks hands out one RWMutex per key and forgets it once unused
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.RWMutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*keyedLock)}
}

// acquire blocks until key is locked and returns the matching unlock
func (k *keyedLocks) acquire(key string, shared bool) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	if shared {
		l.RLock()
	} else {
		l.Lock()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if shared {
				l.RUnlock()
			} else {
				l.Unlock()
			}
			k.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

func (k *keyedLocks) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
