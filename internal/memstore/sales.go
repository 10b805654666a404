package memstore

import (
	"context"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
)

// RecordSale prices each line from the product at sale time, deducts stock and
// appends the sale as one unit.
func (s *Store) RecordSale(ctx context.Context, sale domain.Sale) (domain.Sale, []domain.StockMovement, error) {
	deltas := make([]domain.StockDelta, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		deltas = append(deltas, domain.StockDelta{ProductID: l.ProductID, Delta: -l.Quantity})
	}
	deltas, err := ledger.Normalize(deltas)
	if err != nil {
		return domain.Sale{}, nil, err
	}
	unlock, err := s.locks.LockAll(ctx, productKeys(deltas))
	if err != nil {
		return domain.Sale{}, nil, err
	}
	defer unlock()

	ms, err := s.plan(deltas, domain.ReasonSale, sale.SoldAt)
	if err != nil {
		return domain.Sale{}, nil, err
	}
	sale = copySale(sale)
	s.mu.RLock()
	for i := range sale.Lines {
		sale.Lines[i].UnitPrice = s.products[sale.Lines[i].ProductID].UnitPrice
	}
	s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return domain.Sale{}, nil, err
	}

	sale.ID = newID()
	s.mu.Lock()
	s.commitLocked(ms)
	s.saleIdx[sale.ID] = len(s.sales)
	s.sales = append(s.sales, sale)
	s.mu.Unlock()
	return copySale(sale), ms, nil
}

// ListSales returns up to limit sales, newest first.
func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sale, 0, min(limit, len(s.sales)))
	for i := len(s.sales) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, copySale(s.sales[i]))
	}
	return out, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.saleIdx[id]
	if !ok {
		return domain.Sale{}, apperr.NotFound("sale %s not found", id)
	}
	return copySale(s.sales[i]), nil
}
