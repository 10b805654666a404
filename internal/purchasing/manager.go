// Package purchasing holds the purchase-order manager and the receiving
// reconciler.
package purchasing

import (
	"context"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/authz"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"go.uber.org/zap"
)

type Store interface {
	CreatePurchaseOrder(ctx context.Context, o domain.PurchaseOrder) (domain.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id string) (domain.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context) ([]domain.PurchaseOrder, error)
	PurchaseOrderDetails(ctx context.Context, id string) (domain.PurchaseOrderDetails, error)
}

type Manager struct {
	store Store
	now   func() time.Time
	log   *zap.Logger
}

func NewManager(store Store, log *zap.Logger) *Manager {
	return &Manager{store: store, now: time.Now, log: log}
}

// WithClock replaces the manager's clock.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// CreateOrder validates and stores a new PENDING order.
func (m *Manager) CreateOrder(ctx context.Context, actor authz.Actor, supplierID string, items []domain.PurchaseOrderItem) (domain.PurchaseOrder, error) {
	if err := authz.Require(actor, authz.CapPOCreate); err != nil {
		return domain.PurchaseOrder{}, err
	}
	if supplierID == "" {
		return domain.PurchaseOrder{}, apperr.Validation("supplier_id is required")
	}
	if err := validateItems(items); err != nil {
		return domain.PurchaseOrder{}, err
	}
	o, err := m.store.CreatePurchaseOrder(ctx, domain.PurchaseOrder{
		SupplierID: supplierID,
		Status:     domain.POStatusPending,
		OrderedAt:  m.now().UTC(),
		Items:      items,
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	m.log.Info("purchase order created",
		zap.String("order_id", o.ID),
		zap.String("supplier_id", supplierID),
		zap.Int("items", len(items)),
		zap.String("actor", actor.ID),
	)
	return o, nil
}

func validateItems(items []domain.PurchaseOrderItem) error {
	if len(items) == 0 {
		return apperr.Validation("at least one item is required")
	}
	for i, it := range items {
		switch {
		case it.ProductID == "":
			return apperr.Validation("item %d: product_id is required", i)
		case it.Quantity <= 0:
			return apperr.Validation("item %d: quantity must be > 0", i)
		case it.UnitPrice.IsNegative():
			return apperr.Validation("item %d: unit_price must be >= 0", i)
		}
	}
	return nil
}

func (m *Manager) GetOrder(ctx context.Context, actor authz.Actor, id string) (domain.PurchaseOrder, error) {
	if err := authz.Require(actor, authz.CapPORead); err != nil {
		return domain.PurchaseOrder{}, err
	}
	return m.store.GetPurchaseOrder(ctx, id)
}

func (m *Manager) ListOrders(ctx context.Context, actor authz.Actor) ([]domain.PurchaseOrder, error) {
	if err := authz.Require(actor, authz.CapPORead); err != nil {
		return nil, err
	}
	return m.store.ListPurchaseOrders(ctx)
}

func (m *Manager) GetOrderDetails(ctx context.Context, actor authz.Actor, id string) (domain.PurchaseOrderDetails, error) {
	if err := authz.Require(actor, authz.CapPORead); err != nil {
		return domain.PurchaseOrderDetails{}, err
	}
	return m.store.PurchaseOrderDetails(ctx, id)
}
