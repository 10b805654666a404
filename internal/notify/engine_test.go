package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/authz"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
	"github.com/ariefcatur/go-retail-ledger/internal/memstore"
	"go.uber.org/zap"
)

func newEngine(t *testing.T) (*Engine, *memstore.Store, domain.Product) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	c, _ := st.CreateCategory(ctx, domain.Category{Name: "Drinks"})
	p, err := st.CreateProduct(ctx, domain.Product{Name: "Cola", CategoryID: c.ID, Quantity: 2, ReorderThreshold: 5})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return New(st, zap.NewNop()).WithClock(func() time.Time { return now }), st, p
}

func down(productID string, after int) ledger.Crossing {
	return ledger.Crossing{ProductID: productID, Direction: domain.DirectionDown, Before: after + 3, After: after, Threshold: 5}
}

func TestThresholdCrossedDedup(t *testing.T) {
	e, st, p := newEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := e.ThresholdCrossed(ctx, down(p.ID, 2)); err != nil {
			t.Fatalf("crossing: %v", err)
		}
	}
	if err := e.ThresholdCrossed(ctx, ledger.Crossing{ProductID: p.ID, Direction: domain.DirectionUp, Before: 2, After: 9, Threshold: 5}); err != nil {
		t.Fatalf("up crossing: %v", err)
	}
	ns, _ := st.ListNotifications(ctx, "")
	if len(ns) != 1 {
		t.Fatalf("expected one notification, got %d", len(ns))
	}
	if !strings.Contains(ns[0].Message, "Cola") || ns[0].Status != domain.NotificationUnread {
		t.Fatalf("unexpected notification %+v", ns[0])
	}
}

func TestAcknowledge(t *testing.T) {
	e, _, p := newEngine(t)
	ctx := context.Background()
	cashier := authz.Actor{ID: "c-1", Role: authz.RoleCashier}

	_ = e.ThresholdCrossed(ctx, down(p.ID, 1))
	unread, err := e.List(ctx, cashier, Filter{Status: domain.NotificationUnread})
	if err != nil || len(unread) != 1 {
		t.Fatalf("list unread: %v %d", err, len(unread))
	}

	n, err := e.Acknowledge(ctx, cashier, unread[0].ID)
	if err != nil || n.Status != domain.NotificationRead || n.ReadAt == nil {
		t.Fatalf("ack: %+v %v", n, err)
	}
	again, err := e.Acknowledge(ctx, cashier, unread[0].ID)
	if err != nil || !again.ReadAt.Equal(*n.ReadAt) {
		t.Fatalf("second ack should be a no-op: %+v %v", again, err)
	}

	unread, _ = e.List(ctx, cashier, Filter{Status: domain.NotificationUnread})
	read, _ := e.List(ctx, cashier, Filter{Status: domain.NotificationRead})
	if len(unread) != 0 || len(read) != 1 {
		t.Fatalf("expected 0 unread / 1 read, got %d / %d", len(unread), len(read))
	}

	// acknowledged alerts no longer suppress a new dip
	_ = e.ThresholdCrossed(ctx, down(p.ID, 0))
	unread, _ = e.List(ctx, cashier, Filter{Status: domain.NotificationUnread})
	if len(unread) != 1 {
		t.Fatalf("expected a fresh alert, got %d", len(unread))
	}

	if _, err := e.Acknowledge(ctx, cashier, "missing"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNotifyGeneric(t *testing.T) {
	e, st, _ := newEngine(t)
	ctx := context.Background()
	if _, err := e.Notify(ctx, "   ", ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("blank message should fail, got %v", err)
	}
	n, err := e.Notify(ctx, " Stock take on Friday ", "")
	if err != nil || n.Type != domain.NotificationGeneric || n.Message != "Stock take on Friday" {
		t.Fatalf("notify: %+v %v", n, err)
	}
	// a generic notice must not count as the product's low-stock alert
	if _, created, _ := st.CreateLowStockIfAbsent(ctx, domain.Notification{ProductID: "p"}); !created {
		t.Fatalf("generic notification blocked a low-stock alert")
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]domain.NotificationStatus{"": "", "Unread": domain.NotificationUnread, " read ": domain.NotificationRead} {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStatus("archived"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
