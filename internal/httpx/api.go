package httpx

import (
	"context"

	"github.com/ariefcatur/go-retail-ledger/internal/catalog"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
	"github.com/ariefcatur/go-retail-ledger/internal/notify"
	"github.com/ariefcatur/go-retail-ledger/internal/purchasing"
	"github.com/ariefcatur/go-retail-ledger/internal/reports"
	"github.com/ariefcatur/go-retail-ledger/internal/sales"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Idempotency is redisx.Idempotency; nil disables the Idempotency-Key header.
type Idempotency interface {
	Reserve(ctx context.Context, actorID, key string) (orderID string, reserved bool, err error)
	Complete(ctx context.Context, actorID, key, orderID string) error
	Release(ctx context.Context, actorID, key string) error
}

// API exposes the engine under /api. Every route requires a bearer token.
type API struct {
	Catalog    *catalog.Service
	Ledger     *ledger.Ledger
	Orders     *purchasing.Manager
	Reconciler *purchasing.Reconciler
	Sales      *sales.Service
	Notify     *notify.Engine
	Reports    *reports.Aggregator
	Idem       Idempotency
	JWTSecret  string
	Log        *zap.Logger
}

func (a *API) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(a.JWTSecret))
		a.registerCatalog(r)
		a.registerStock(r)
		a.registerPurchaseOrders(r)
		a.registerSales(r)
		a.registerNotifications(r)
		a.registerReports(r)
	})
}
