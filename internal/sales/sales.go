// Package sales records sales, the stock-decrementing facts consumed by the
// ledger and the reports.
package sales

import (
	"context"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/authz"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/events"
	"go.uber.org/zap"
)

type Store interface {
	// RecordSale prices lines from the products, deducts stock and stores the
	// sale atomically. InsufficientStock on any line applies nothing.
	RecordSale(ctx context.Context, sale domain.Sale) (domain.Sale, []domain.StockMovement, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (domain.Sale, error)
}

type Emitter interface {
	Emit(ctx context.Context, ms []domain.StockMovement)
}

type Service struct {
	store  Store
	ledger Emitter
	pub    events.Publisher
	now    func() time.Time
	log    *zap.Logger
}

func New(store Store, ledger Emitter, pub events.Publisher, log *zap.Logger) *Service {
	return &Service{store: store, ledger: ledger, pub: events.OrNop(pub), now: time.Now, log: log}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// LineInput is one requested sale line; the price comes from the product.
type LineInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (s *Service) RecordSale(ctx context.Context, actor authz.Actor, method domain.PaymentMethod, lines []LineInput) (domain.Sale, error) {
	if err := authz.Require(actor, authz.CapSaleRecord); err != nil {
		return domain.Sale{}, err
	}
	if !method.Valid() {
		return domain.Sale{}, apperr.Validation("unknown payment method %q", string(method))
	}
	if len(lines) == 0 {
		return domain.Sale{}, apperr.Validation("at least one line is required")
	}
	sale := domain.Sale{
		SoldAt:        s.now().UTC(),
		PaymentMethod: method,
		CashierID:     actor.ID,
		Lines:         make([]domain.SaleLine, 0, len(lines)),
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return domain.Sale{}, apperr.Validation("line %d: product_id is required", i)
		}
		if l.Quantity <= 0 {
			return domain.Sale{}, apperr.Validation("line %d: quantity must be > 0", i)
		}
		sale.Lines = append(sale.Lines, domain.SaleLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	sale, ms, err := s.store.RecordSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}
	s.log.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("total", sale.Total().StringFixed(2)),
		zap.String("cashier", actor.ID),
	)
	s.ledger.Emit(ctx, ms)

	payload := domain.SaleRecordedPayload{SaleID: sale.ID, Lines: sale.Lines, Total: sale.Total()}
	if err := s.pub.Publish(context.WithoutCancel(ctx), domain.TopicSaleRecorded, sale.ID, domain.EventSaleRecorded, payload); err != nil {
		s.log.Error("publish sale failed", zap.String("sale_id", sale.ID), zap.Error(err))
	}
	return sale, nil
}

func (s *Service) ListSales(ctx context.Context, actor authz.Actor, limit int) ([]domain.Sale, error) {
	if err := authz.Require(actor, authz.CapSaleRead); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.store.ListSales(ctx, limit)
}

func (s *Service) GetSale(ctx context.Context, actor authz.Actor, id string) (domain.Sale, error) {
	if err := authz.Require(actor, authz.CapSaleRead); err != nil {
		return domain.Sale{}, err
	}
	return s.store.GetSale(ctx, id)
}
