// Package memstore is the in-process backend. Lock order for multi-resource
// writes: purchase-order key, then product keys ascending (keylock.LockAll),
// then the state write lock, which is held only while publishing a result
// that was fully computed under the key locks. Readers hold the state read
// lock just long enough to copy, so they always observe whole writes.
package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/keylock"
	"github.com/google/uuid"
)

const movementHistory = 1000

type Store struct {
	locks *keylock.Locker
	now   func() time.Time

	initialReliability float64

	mu            sync.RWMutex
	products      map[string]domain.Product
	categories    map[string]domain.Category
	suppliers     map[string]domain.Supplier
	orders        map[string]domain.PurchaseOrder
	sales         []domain.Sale
	saleIdx       map[string]int
	notifications []domain.Notification
	notifIdx      map[string]int
	unreadLow     map[string]string // product_id -> unread LOW_STOCK notification id
	movements     map[string][]domain.StockMovement
}

type Option func(*Store)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithInitialReliability sets the score new suppliers start with.
func WithInitialReliability(score float64) Option {
	return func(s *Store) { s.initialReliability = score }
}

func New(opts ...Option) *Store {
	s := &Store{
		locks:              keylock.New(),
		now:                time.Now,
		initialReliability: 100,
		products:           make(map[string]domain.Product),
		categories:         make(map[string]domain.Category),
		suppliers:          make(map[string]domain.Supplier),
		orders:             make(map[string]domain.PurchaseOrder),
		saleIdx:            make(map[string]int),
		notifIdx:           make(map[string]int),
		unreadLow:          make(map[string]string),
		movements:          make(map[string][]domain.StockMovement),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func productKey(id string) string { return "product:" + id }
func orderKey(id string) string   { return "po:" + id }

func productKeys(ds []domain.StockDelta) []string {
	keys := make([]string, 0, len(ds))
	for _, d := range ds {
		keys = append(keys, productKey(d.ProductID))
	}
	return keys
}

func newID() string { return uuid.NewString() }

func copyOrder(o domain.PurchaseOrder) domain.PurchaseOrder {
	o.Items = append([]domain.PurchaseOrderItem(nil), o.Items...)
	if o.ReceivedAt != nil {
		t := *o.ReceivedAt
		o.ReceivedAt = &t
	}
	return o
}

func copySale(s domain.Sale) domain.Sale {
	s.Lines = append([]domain.SaleLine(nil), s.Lines...)
	return s
}

func sortByName[T any](xs []T, name func(T) string, id func(T) string) {
	sort.Slice(xs, func(i, j int) bool {
		ni, nj := strings.ToLower(name(xs[i])), strings.ToLower(name(xs[j]))
		if ni != nj {
			return ni < nj
		}
		return id(xs[i]) < id(xs[j])
	})
}
