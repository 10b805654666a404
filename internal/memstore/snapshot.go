package memstore

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-retail-ledger/internal/domain"
)

// Snapshot copies products, categories and sales under one read lock.
func (s *Store) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	snap := domain.Snapshot{
		TakenAt:    s.now().UTC(),
		Products:   make([]domain.Product, 0, len(s.products)),
		Categories: make([]domain.Category, 0, len(s.categories)),
		Sales:      make([]domain.Sale, 0, len(s.sales)),
	}
	for _, p := range s.products {
		snap.Products = append(snap.Products, p)
	}
	for _, c := range s.categories {
		snap.Categories = append(snap.Categories, c)
	}
	for _, sale := range s.sales {
		snap.Sales = append(snap.Sales, copySale(sale))
	}
	s.mu.RUnlock()

	sort.Slice(snap.Products, func(i, j int) bool { return snap.Products[i].ID < snap.Products[j].ID })
	sort.Slice(snap.Categories, func(i, j int) bool { return snap.Categories[i].ID < snap.Categories[j].ID })
	return snap, nil
}
