package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/authz"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/events"
	"go.uber.org/zap"
)

// ReceiveStore performs the whole receipt in one atomic step: the
// PENDING->RECEIVED check-and-set, the stock increments and the supplier
// score. It returns the order in its new state and the applied movements.
type ReceiveStore interface {
	ReceivePurchaseOrder(ctx context.Context, id string, receivedAt time.Time,
		score func(current float64, o domain.PurchaseOrder) float64) (domain.PurchaseOrder, []domain.StockMovement, error)
}

// Emitter forwards committed movements to the crossing sinks (ledger.Ledger).
type Emitter interface {
	Emit(ctx context.Context, ms []domain.StockMovement)
}

type Notifier interface {
	Notify(ctx context.Context, message, productID string) (domain.Notification, error)
}

type ReconcilerConfig struct {
	Store     ReceiveStore
	Ledger    Emitter
	Policy    ReliabilityPolicy
	Notifier  Notifier         // optional
	Publisher events.Publisher // optional
	Now       func() time.Time
	Log       *zap.Logger
}

type Reconciler struct {
	store    ReceiveStore
	ledger   Emitter
	policy   ReliabilityPolicy
	notifier Notifier
	pub      events.Publisher
	now      func() time.Time
	log      *zap.Logger
}

func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Policy == (ReliabilityPolicy{}) {
		cfg.Policy = DefaultPolicy()
	}
	return &Reconciler{
		store:    cfg.Store,
		ledger:   cfg.Ledger,
		policy:   cfg.Policy,
		notifier: cfg.Notifier,
		pub:      events.OrNop(cfg.Publisher),
		now:      cfg.Now,
		log:      cfg.Log,
	}
}

// Receive transitions a PENDING order to RECEIVED. Concurrent calls for the
// same order yield exactly one success; the rest fail with
// InvalidStateTransition and apply nothing.
func (r *Reconciler) Receive(ctx context.Context, actor authz.Actor, orderID string) (domain.PurchaseOrder, error) {
	if err := authz.Require(actor, authz.CapPOReceive); err != nil {
		return domain.PurchaseOrder{}, err
	}
	receivedAt := r.now().UTC()
	var before float64
	o, ms, err := r.store.ReceivePurchaseOrder(ctx, orderID, receivedAt, func(current float64, o domain.PurchaseOrder) float64 {
		before = current
		return r.policy.Next(current, o.OrderedAt, *o.ReceivedAt)
	})
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("receive purchase order %s: %w", orderID, err)
	}
	r.log.Info("purchase order received",
		zap.String("order_id", o.ID),
		zap.String("supplier_id", o.SupplierID),
		zap.Float64("reliability_before", before),
		zap.Duration("lead_time", receivedAt.Sub(o.OrderedAt)),
		zap.String("actor", actor.ID),
	)

	r.ledger.Emit(ctx, ms)
	r.afterReceive(context.WithoutCancel(ctx), o)
	return o, nil
}

func (r *Reconciler) afterReceive(ctx context.Context, o domain.PurchaseOrder) {
	if r.notifier != nil {
		msg := fmt.Sprintf("Purchase order %s received: %d item(s), total %s", o.ID, len(o.Items), o.Total().StringFixed(2))
		if _, err := r.notifier.Notify(ctx, msg, ""); err != nil {
			r.log.Error("receipt notification failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	payload := domain.PurchaseOrderReceivedPayload{
		OrderID:    o.ID,
		SupplierID: o.SupplierID,
		ReceivedAt: *o.ReceivedAt,
		Items:      o.Deltas(),
	}
	if err := r.pub.Publish(ctx, domain.TopicPurchaseOrderReceived, o.ID, domain.EventPurchaseOrderReceived, payload); err != nil {
		r.log.Error("publish receipt failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}
