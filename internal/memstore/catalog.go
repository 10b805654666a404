package memstore

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
)

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sortByName(out, func(c domain.Category) string { return c.Name }, func(c domain.Category) string { return c.ID })
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, apperr.NotFound("category %s not found", id)
	}
	return c, nil
}

func (s *Store) categoryNameTakenLocked(name, exceptID string) bool {
	for _, c := range s.categories {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryNameTakenLocked(c.Name, "") {
		return domain.Category{}, apperr.Validation("category %q already exists", c.Name)
	}
	c.ID = newID()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return domain.Category{}, apperr.NotFound("category %s not found", c.ID)
	}
	if s.categoryNameTakenLocked(c.Name, c.ID) {
		return domain.Category{}, apperr.Validation("category %q already exists", c.Name)
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return apperr.NotFound("category %s not found", id)
	}
	for _, p := range s.products {
		if p.CategoryID == id {
			return apperr.Validation("category %s still has products", id)
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	out := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sp := range s.suppliers {
		out = append(out, sp)
	}
	s.mu.RUnlock()
	sortByName(out, func(sp domain.Supplier) string { return sp.Name }, func(sp domain.Supplier) string { return sp.ID })
	return out, nil
}

func (s *Store) GetSupplier(ctx context.Context, id string) (domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.suppliers[id]
	if !ok {
		return domain.Supplier{}, apperr.NotFound("supplier %s not found", id)
	}
	return sp, nil
}

func (s *Store) CreateSupplier(ctx context.Context, sp domain.Supplier) (domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp.ID = newID()
	sp.ReliabilityScore = s.initialReliability
	sp.CreatedAt = s.now().UTC()
	s.suppliers[sp.ID] = sp
	return sp, nil
}

// UpdateSupplier replaces contact fields; the reliability score is kept.
func (s *Store) UpdateSupplier(ctx context.Context, sp domain.Supplier) (domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.suppliers[sp.ID]
	if !ok {
		return domain.Supplier{}, apperr.NotFound("supplier %s not found", sp.ID)
	}
	cur.Name, cur.Phone, cur.Email, cur.Address = sp.Name, sp.Phone, sp.Email, sp.Address
	s.suppliers[sp.ID] = cur
	return cur, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[id]; !ok {
		return apperr.NotFound("supplier %s not found", id)
	}
	for _, o := range s.orders {
		if o.SupplierID == id {
			return apperr.Validation("supplier %s is referenced by purchase orders", id)
		}
	}
	delete(s.suppliers, id)
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sortByName(out, func(p domain.Product) string { return p.Name }, func(p domain.Product) string { return p.ID })
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, apperr.NotFound("product %s not found", id)
	}
	return p, nil
}

func (s *Store) checkProductRefsLocked(p domain.Product) error {
	if _, ok := s.categories[p.CategoryID]; !ok {
		return apperr.NotFound("category %s not found", p.CategoryID)
	}
	if p.Barcode == "" {
		return nil
	}
	for _, other := range s.products {
		if other.ID != p.ID && other.Barcode == p.Barcode {
			return apperr.Validation("barcode %q already in use", p.Barcode)
		}
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkProductRefsLocked(p); err != nil {
		return domain.Product{}, err
	}
	p.ID = newID()
	p.CreatedAt = s.now().UTC()
	p.UpdatedAt = p.CreatedAt
	s.products[p.ID] = p
	return p, nil
}

// UpdateProduct changes the non-stock fields. It takes the product key so the
// threshold never changes under an in-flight stock mutation.
func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	unlock, err := s.locks.Lock(ctx, productKey(p.ID))
	if err != nil {
		return domain.Product{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.products[p.ID]
	if !ok {
		return domain.Product{}, apperr.NotFound("product %s not found", p.ID)
	}
	if err := s.checkProductRefsLocked(p); err != nil {
		return domain.Product{}, err
	}
	cur.Name = p.Name
	cur.Barcode = p.Barcode
	cur.CategoryID = p.CategoryID
	cur.UnitPrice = p.UnitPrice
	cur.ReorderThreshold = p.ReorderThreshold
	cur.UpdatedAt = s.now().UTC()
	s.products[p.ID] = cur
	return cur, nil
}
