package memstore

import (
	"context"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
)

// ApplyStockDeltas expects deltas already normalized by ledger.Normalize.
func (s *Store) ApplyStockDeltas(ctx context.Context, deltas []domain.StockDelta, reason domain.Reason) ([]domain.StockMovement, error) {
	unlock, err := s.locks.LockAll(ctx, productKeys(deltas))
	if err != nil {
		return nil, err
	}
	defer unlock()

	ms, err := s.plan(deltas, reason, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.commitLocked(ms)
	s.mu.Unlock()
	return ms, nil
}

// plan computes the movements for deltas. Callers must hold the product keys.
func (s *Store) plan(deltas []domain.StockDelta, reason domain.Reason, at time.Time) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms := make([]domain.StockMovement, 0, len(deltas))
	for _, d := range deltas {
		p, ok := s.products[d.ProductID]
		if !ok {
			return nil, apperr.NotFound("product %s not found", d.ProductID)
		}
		after, err := ledger.Next(p, d.Delta)
		if err != nil {
			return nil, err
		}
		ms = append(ms, domain.StockMovement{
			ProductID:  p.ID,
			Delta:      d.Delta,
			Before:     p.Quantity,
			After:      after,
			Threshold:  p.ReorderThreshold,
			Reason:     reason,
			OccurredAt: at,
		})
	}
	return ms, nil
}

// commitLocked writes only the quantity so concurrent non-stock edits survive.
func (s *Store) commitLocked(ms []domain.StockMovement) {
	for _, m := range ms {
		p := s.products[m.ProductID]
		p.Quantity = m.After
		p.UpdatedAt = m.OccurredAt
		s.products[m.ProductID] = p

		h := append(s.movements[m.ProductID], m)
		if len(h) > movementHistory {
			h = h[len(h)-movementHistory:]
		}
		s.movements[m.ProductID] = h
	}
}

func (s *Store) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.products[productID]; !ok {
		return nil, apperr.NotFound("product %s not found", productID)
	}
	h := s.movements[productID]
	out := make([]domain.StockMovement, 0, min(limit, len(h)))
	for i := len(h) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h[i])
	}
	return out, nil
}
