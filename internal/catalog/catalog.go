// Package catalog maintains categories, suppliers and the non-stock product
// fields. Supplier reliability is read-only here; only receiving changes it.
package catalog

import (
	"context"
	"net/mail"
	"strings"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/authz"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"go.uber.org/zap"
)

type Store interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (domain.Category, error)
	CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplier(ctx context.Context, id string) (domain.Supplier, error)
	CreateSupplier(ctx context.Context, s domain.Supplier) (domain.Supplier, error)
	UpdateSupplier(ctx context.Context, s domain.Supplier) (domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
}

type Service struct {
	store Store
	log   *zap.Logger
}

func New(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) ListCategories(ctx context.Context, actor authz.Actor) ([]domain.Category, error) {
	if err := authz.Require(actor, authz.CapCatalogRead); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, actor authz.Actor, id string) (domain.Category, error) {
	if err := authz.Require(actor, authz.CapCatalogRead); err != nil {
		return domain.Category{}, err
	}
	return s.store.GetCategory(ctx, id)
}

func cleanCategory(c domain.Category) (domain.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	if c.Name == "" {
		return c, apperr.Validation("category name is required")
	}
	return c, nil
}

func (s *Service) CreateCategory(ctx context.Context, actor authz.Actor, c domain.Category) (domain.Category, error) {
	if err := authz.Require(actor, authz.CapCategoryWrite); err != nil {
		return domain.Category{}, err
	}
	c, err := cleanCategory(c)
	if err != nil {
		return domain.Category{}, err
	}
	c, err = s.store.CreateCategory(ctx, c)
	if err != nil {
		return domain.Category{}, err
	}
	s.log.Info("category created", zap.String("category_id", c.ID), zap.String("actor", actor.ID))
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, actor authz.Actor, c domain.Category) (domain.Category, error) {
	if err := authz.Require(actor, authz.CapCategoryWrite); err != nil {
		return domain.Category{}, err
	}
	c, err := cleanCategory(c)
	if err != nil {
		return domain.Category{}, err
	}
	return s.store.UpdateCategory(ctx, c)
}

func (s *Service) DeleteCategory(ctx context.Context, actor authz.Actor, id string) error {
	if err := authz.Require(actor, authz.CapCategoryWrite); err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.log.Info("category deleted", zap.String("category_id", id), zap.String("actor", actor.ID))
	return nil
}

func (s *Service) ListSuppliers(ctx context.Context, actor authz.Actor) ([]domain.Supplier, error) {
	if err := authz.Require(actor, authz.CapCatalogRead); err != nil {
		return nil, err
	}
	return s.store.ListSuppliers(ctx)
}

func (s *Service) GetSupplier(ctx context.Context, actor authz.Actor, id string) (domain.Supplier, error) {
	if err := authz.Require(actor, authz.CapCatalogRead); err != nil {
		return domain.Supplier{}, err
	}
	return s.store.GetSupplier(ctx, id)
}

func cleanSupplier(sp domain.Supplier) (domain.Supplier, error) {
	sp.Name = strings.TrimSpace(sp.Name)
	sp.Phone = strings.TrimSpace(sp.Phone)
	sp.Email = strings.TrimSpace(sp.Email)
	sp.Address = strings.TrimSpace(sp.Address)
	if sp.Name == "" {
		return sp, apperr.Validation("supplier name is required")
	}
	if sp.Email != "" {
		if _, err := mail.ParseAddress(sp.Email); err != nil {
			return sp, apperr.Validation("invalid supplier email %q", sp.Email)
		}
	}
	return sp, nil
}

func (s *Service) CreateSupplier(ctx context.Context, actor authz.Actor, sp domain.Supplier) (domain.Supplier, error) {
	if err := authz.Require(actor, authz.CapSupplierWrite); err != nil {
		return domain.Supplier{}, err
	}
	sp, err := cleanSupplier(sp)
	if err != nil {
		return domain.Supplier{}, err
	}
	sp, err = s.store.CreateSupplier(ctx, sp)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.log.Info("supplier created", zap.String("supplier_id", sp.ID), zap.String("actor", actor.ID))
	return sp, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, actor authz.Actor, sp domain.Supplier) (domain.Supplier, error) {
	if err := authz.Require(actor, authz.CapSupplierWrite); err != nil {
		return domain.Supplier{}, err
	}
	sp, err := cleanSupplier(sp)
	if err != nil {
		return domain.Supplier{}, err
	}
	return s.store.UpdateSupplier(ctx, sp)
}

func (s *Service) DeleteSupplier(ctx context.Context, actor authz.Actor, id string) error {
	if err := authz.Require(actor, authz.CapSupplierWrite); err != nil {
		return err
	}
	if err := s.store.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	s.log.Info("supplier deleted", zap.String("supplier_id", id), zap.String("actor", actor.ID))
	return nil
}

func (s *Service) ListProducts(ctx context.Context, actor authz.Actor) ([]domain.Product, error) {
	if err := authz.Require(actor, authz.CapCatalogRead); err != nil {
		return nil, err
	}
	return s.store.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, actor authz.Actor, id string) (domain.Product, error) {
	if err := authz.Require(actor, authz.CapCatalogRead); err != nil {
		return domain.Product{}, err
	}
	return s.store.GetProduct(ctx, id)
}

func cleanProduct(p domain.Product) (domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Barcode = strings.TrimSpace(p.Barcode)
	switch {
	case p.Name == "":
		return p, apperr.Validation("product name is required")
	case p.CategoryID == "":
		return p, apperr.Validation("category_id is required")
	case p.UnitPrice.IsNegative():
		return p, apperr.Validation("unit_price must be >= 0")
	case p.ReorderThreshold < 0:
		return p, apperr.Validation("reorder_threshold must be >= 0")
	}
	return p, nil
}

// CreateProduct registers a product with its opening quantity.
func (s *Service) CreateProduct(ctx context.Context, actor authz.Actor, p domain.Product) (domain.Product, error) {
	if err := authz.Require(actor, authz.CapProductWrite); err != nil {
		return domain.Product{}, err
	}
	p, err := cleanProduct(p)
	if err != nil {
		return domain.Product{}, err
	}
	if p.Quantity < 0 {
		return domain.Product{}, apperr.Validation("quantity must be >= 0")
	}
	p, err = s.store.CreateProduct(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product created", zap.String("product_id", p.ID), zap.Int("quantity", p.Quantity))
	return p, nil
}

// UpdateProduct edits everything except the quantity, which belongs to the ledger.
func (s *Service) UpdateProduct(ctx context.Context, actor authz.Actor, p domain.Product) (domain.Product, error) {
	if err := authz.Require(actor, authz.CapProductWrite); err != nil {
		return domain.Product{}, err
	}
	p, err := cleanProduct(p)
	if err != nil {
		return domain.Product{}, err
	}
	return s.store.UpdateProduct(ctx, p)
}
