package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
)

func (s *Store) CreatePurchaseOrder(ctx context.Context, o domain.PurchaseOrder) (domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[o.SupplierID]; !ok {
		return domain.PurchaseOrder{}, apperr.NotFound("supplier %s not found", o.SupplierID)
	}
	for _, it := range o.Items {
		if _, ok := s.products[it.ProductID]; !ok {
			return domain.PurchaseOrder{}, apperr.NotFound("product %s not found", it.ProductID)
		}
	}
	o = copyOrder(o)
	o.ID = newID()
	o.Status = domain.POStatusPending
	o.ReceivedAt = nil
	s.orders[o.ID] = o
	return copyOrder(o), nil
}

func (s *Store) GetPurchaseOrder(ctx context.Context, id string) (domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.PurchaseOrder{}, apperr.NotFound("purchase order %s not found", id)
	}
	return copyOrder(o), nil
}

// ListPurchaseOrders returns orders newest first.
func (s *Store) ListPurchaseOrders(ctx context.Context) ([]domain.PurchaseOrder, error) {
	s.mu.RLock()
	out := make([]domain.PurchaseOrder, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, copyOrder(o))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderedAt.Equal(out[j].OrderedAt) {
			return out[i].OrderedAt.After(out[j].OrderedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) PurchaseOrderDetails(ctx context.Context, id string) (domain.PurchaseOrderDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.PurchaseOrderDetails{}, apperr.NotFound("purchase order %s not found", id)
	}
	d := domain.PurchaseOrderDetails{
		PurchaseOrder: copyOrder(o),
		SupplierName:  s.suppliers[o.SupplierID].Name,
		Lines:         make([]domain.PurchaseOrderLine, 0, len(o.Items)),
		TotalAmount:   o.Total(),
	}
	for _, it := range o.Items {
		d.Lines = append(d.Lines, domain.PurchaseOrderLine{
			ProductID:   it.ProductID,
			ProductName: s.products[it.ProductID].Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal(),
		})
	}
	return d, nil
}

// ReceivePurchaseOrder moves a PENDING order to RECEIVED together with its
// stock increments and the supplier score, or changes nothing.
func (s *Store) ReceivePurchaseOrder(ctx context.Context, id string, receivedAt time.Time,
	score func(current float64, o domain.PurchaseOrder) float64) (domain.PurchaseOrder, []domain.StockMovement, error) {
	unlockPO, err := s.locks.Lock(ctx, orderKey(id))
	if err != nil {
		return domain.PurchaseOrder{}, nil, err
	}
	defer unlockPO()

	o, err := s.GetPurchaseOrder(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, nil, err
	}
	if !domain.CanTransition(o.Status, domain.POStatusReceived) {
		return domain.PurchaseOrder{}, nil, apperr.InvalidState("purchase order %s is %s, expected %s", id, o.Status, domain.POStatusPending)
	}

	deltas, err := ledger.Normalize(o.Deltas())
	if err != nil {
		return domain.PurchaseOrder{}, nil, err
	}
	unlock, err := s.locks.LockAll(ctx, productKeys(deltas))
	if err != nil {
		return domain.PurchaseOrder{}, nil, err
	}
	defer unlock()

	ms, err := s.plan(deltas, domain.ReasonPurchaseReceipt, receivedAt)
	if err != nil {
		return domain.PurchaseOrder{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return domain.PurchaseOrder{}, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.suppliers[o.SupplierID]
	if !ok {
		return domain.PurchaseOrder{}, nil, apperr.NotFound("supplier %s not found", o.SupplierID)
	}
	s.commitLocked(ms)
	at := receivedAt
	o.Status = domain.POStatusReceived
	o.ReceivedAt = &at
	s.orders[id] = copyOrder(o)
	sp.ReliabilityScore = score(sp.ReliabilityScore, o)
	s.suppliers[sp.ID] = sp
	return o, ms, nil
}
