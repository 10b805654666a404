package catalog

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/authz"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/memstore"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	admin   = authz.Actor{ID: "a", Role: authz.RoleAdmin}
	manager = authz.Actor{ID: "m", Role: authz.RoleManager}
	cashier = authz.Actor{ID: "c", Role: authz.RoleCashier}
)

func TestCategoryLifecycle(t *testing.T) {
	s := New(memstore.New(), zap.NewNop())
	ctx := context.Background()

	if _, err := s.CreateCategory(ctx, manager, domain.Category{Name: "Frozen"}); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("manager must not create categories, got %v", err)
	}
	c, err := s.CreateCategory(ctx, admin, domain.Category{Name: "  Frozen  "})
	if err != nil || c.Name != "Frozen" {
		t.Fatalf("create: %+v %v", c, err)
	}
	if _, err := s.CreateCategory(ctx, admin, domain.Category{Name: " "}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("blank name should fail, got %v", err)
	}
	if _, err := s.CreateCategory(ctx, admin, domain.Category{Name: "FROZEN"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("duplicate name should fail, got %v", err)
	}

	p, err := s.CreateProduct(ctx, manager, domain.Product{Name: "Peas", CategoryID: c.ID, UnitPrice: decimal.RequireFromString("1.10"), Quantity: 4})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := s.DeleteCategory(ctx, admin, c.ID); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("category with products must not be deleted, got %v", err)
	}
	list, _ := s.ListProducts(ctx, cashier)
	if len(list) != 1 || list[0].ID != p.ID {
		t.Fatalf("unexpected products %+v", list)
	}
}

func TestProductValidation(t *testing.T) {
	st := memstore.New()
	s := New(st, zap.NewNop())
	ctx := context.Background()
	c, _ := st.CreateCategory(ctx, domain.Category{Name: "Misc"})

	cases := []struct {
		name  string
		actor authz.Actor
		p     domain.Product
		kind  apperr.Kind
	}{
		{"cashier", cashier, domain.Product{Name: "X", CategoryID: c.ID}, apperr.KindUnauthorized},
		{"no name", manager, domain.Product{CategoryID: c.ID}, apperr.KindValidation},
		{"no category", manager, domain.Product{Name: "X"}, apperr.KindValidation},
		{"negative price", manager, domain.Product{Name: "X", CategoryID: c.ID, UnitPrice: decimal.NewFromInt(-1)}, apperr.KindValidation},
		{"negative threshold", manager, domain.Product{Name: "X", CategoryID: c.ID, ReorderThreshold: -1}, apperr.KindValidation},
		{"negative quantity", manager, domain.Product{Name: "X", CategoryID: c.ID, Quantity: -1}, apperr.KindValidation},
		{"unknown category", manager, domain.Product{Name: "X", CategoryID: "ghost"}, apperr.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.CreateProduct(ctx, tc.actor, tc.p); apperr.KindOf(err) != tc.kind {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
		})
	}
}

func TestSupplierEmail(t *testing.T) {
	s := New(memstore.New(), zap.NewNop())
	ctx := context.Background()
	if _, err := s.CreateSupplier(ctx, admin, domain.Supplier{Name: "Acme", Email: "not-an-email"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected invalid email, got %v", err)
	}
	sp, err := s.CreateSupplier(ctx, admin, domain.Supplier{Name: "Acme", Email: "orders@acme.test"})
	if err != nil || sp.ReliabilityScore != 100 {
		t.Fatalf("create supplier: %+v %v", sp, err)
	}
	if _, err := s.CreateSupplier(ctx, manager, domain.Supplier{Name: "Other"}); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("manager must not create suppliers, got %v", err)
	}
}
