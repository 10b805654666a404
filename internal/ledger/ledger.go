// Package ledger is the authoritative per-product stock quantity. All
// mutations go through a Store that applies deltas atomically; the ledger
// validates input, checks capabilities and fans threshold crossings out to
// sinks once the mutation has committed.
package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/authz"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"go.uber.org/zap"
)

// Store applies a batch of deltas as one unit: every touched product is
// locked in ascending id order, all results are checked for negativity, and
// either all deltas are committed or none.
type Store interface {
	ApplyStockDeltas(ctx context.Context, deltas []domain.StockDelta, reason domain.Reason) ([]domain.StockMovement, error)
	ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error)
}

// CrossingSink receives threshold crossings after commit.
type CrossingSink interface {
	ThresholdCrossed(ctx context.Context, c Crossing) error
}

type Ledger struct {
	store Store
	sinks []CrossingSink
	log   *zap.Logger
}

func New(store Store, log *zap.Logger, sinks ...CrossingSink) *Ledger {
	return &Ledger{store: store, sinks: sinks, log: log}
}

// AddSink registers another crossing sink. Call during wiring only.
func (l *Ledger) AddSink(s CrossingSink) {
	l.sinks = append(l.sinks, s)
}

// Adjust applies a single signed manual delta and returns the applied movement.
// Sales and receipts write their own movements through their stores.
func (l *Ledger) Adjust(ctx context.Context, actor authz.Actor, productID string, delta int, reason domain.Reason) (domain.StockMovement, error) {
	if err := authz.Require(actor, authz.CapStockAdjust); err != nil {
		return domain.StockMovement{}, err
	}
	if productID == "" {
		return domain.StockMovement{}, apperr.Validation("product_id is required")
	}
	if delta == 0 {
		return domain.StockMovement{}, apperr.Validation("delta must be non-zero")
	}
	if err := manualOnly(reason); err != nil {
		return domain.StockMovement{}, err
	}
	ms, err := l.apply(ctx, []domain.StockDelta{{ProductID: productID, Delta: delta}}, reason)
	if err != nil {
		return domain.StockMovement{}, err
	}
	return ms[0], nil
}

// AdjustBatch applies every manual delta or none.
func (l *Ledger) AdjustBatch(ctx context.Context, actor authz.Actor, deltas []domain.StockDelta, reason domain.Reason) ([]domain.StockMovement, error) {
	if err := authz.Require(actor, authz.CapStockAdjust); err != nil {
		return nil, err
	}
	if err := manualOnly(reason); err != nil {
		return nil, err
	}
	return l.apply(ctx, deltas, reason)
}

// manualOnly keeps SALE and PURCHASE_RECEIPT entries reserved for the
// sale and receipt paths.
func manualOnly(reason domain.Reason) error {
	if !reason.Valid() {
		return apperr.Validation("unknown reason %q", string(reason))
	}
	if reason != domain.ReasonManualAdjustment {
		return apperr.Validation("reason %s is recorded by its own operation, use %s", reason, domain.ReasonManualAdjustment)
	}
	return nil
}

func (l *Ledger) apply(ctx context.Context, deltas []domain.StockDelta, reason domain.Reason) ([]domain.StockMovement, error) {
	norm, err := Normalize(deltas)
	if err != nil {
		return nil, err
	}
	ms, err := l.store.ApplyStockDeltas(ctx, norm, reason)
	if err != nil {
		return nil, err
	}
	l.log.Info("stock adjusted", zap.String("reason", string(reason)), zap.Int("products", len(ms)))
	l.Emit(ctx, ms)
	return ms, nil
}

// Movements returns the most recent ledger entries for a product, newest first.
func (l *Ledger) Movements(ctx context.Context, actor authz.Actor, productID string, limit int) ([]domain.StockMovement, error) {
	if err := authz.Require(actor, authz.CapStockRead); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return l.store.ListMovements(ctx, productID, limit)
}

// Emit forwards every threshold crossing in ms to the sinks. The mutation has
// already committed, so sink failures are logged and not returned.
func (l *Ledger) Emit(ctx context.Context, ms []domain.StockMovement) {
	ctx = context.WithoutCancel(ctx)
	for _, m := range ms {
		c, ok := DetectCrossing(m)
		if !ok {
			continue
		}
		l.log.Info("threshold crossed",
			zap.String("product_id", c.ProductID),
			zap.String("direction", string(c.Direction)),
			zap.Int("after", c.After),
			zap.Int("threshold", c.Threshold),
		)
		for _, s := range l.sinks {
			if err := s.ThresholdCrossed(ctx, c); err != nil {
				l.log.Error("crossing sink failed", zap.String("product_id", c.ProductID), zap.Error(err))
			}
		}
	}
}

// Normalize validates deltas, merges repeated products, drops products whose
// deltas cancel out and sorts by product id, which is the lock acquisition order.
func Normalize(deltas []domain.StockDelta) ([]domain.StockDelta, error) {
	if len(deltas) == 0 {
		return nil, apperr.Validation("at least one adjustment is required")
	}
	sum := make(map[string]int, len(deltas))
	for i, d := range deltas {
		if d.ProductID == "" {
			return nil, apperr.Validation("adjustment %d: product_id is required", i)
		}
		if d.Delta == 0 {
			return nil, apperr.Validation("adjustment %d: delta must be non-zero", i)
		}
		sum[d.ProductID] += d.Delta
	}
	out := make([]domain.StockDelta, 0, len(sum))
	for id, d := range sum {
		if d == 0 {
			continue
		}
		out = append(out, domain.StockDelta{ProductID: id, Delta: d})
	}
	if len(out) == 0 {
		return nil, apperr.Validation("adjustments net to zero")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// Next computes the quantity after applying delta, rejecting negative results.
// Stores call it while holding the product lock.
func Next(p domain.Product, delta int) (int, error) {
	after := p.Quantity + delta
	if after < 0 {
		return 0, apperr.InsufficientStock("only %d units of %s in stock, cannot remove %d", p.Quantity, describe(p), -delta)
	}
	return after, nil
}

func describe(p domain.Product) string {
	if p.Name == "" {
		return p.ID
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.ID)
}
