package memstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func seedProduct(t *testing.T, s *Store, name string, qty, threshold int, price string) domain.Product {
	t.Helper()
	ctx := context.Background()
	cs, _ := s.ListCategories(ctx)
	var catID string
	if len(cs) > 0 {
		catID = cs[0].ID
	} else {
		c, err := s.CreateCategory(ctx, domain.Category{Name: "General"})
		if err != nil {
			t.Fatalf("create category: %v", err)
		}
		catID = c.ID
	}
	p, err := s.CreateProduct(ctx, domain.Product{
		Name: name, CategoryID: catID, UnitPrice: decimal.RequireFromString(price),
		Quantity: qty, ReorderThreshold: threshold,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestApplyStockDeltasNeverNegative(t *testing.T) {
	s := New()
	p := seedProduct(t, s, "Rice", 50, 5, "2.00")
	ctx := context.Background()

	var ok, short atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta := -1
			if i%4 == 0 {
				delta = 1
			}
			_, err := s.ApplyStockDeltas(ctx, []domain.StockDelta{{ProductID: p.ID, Delta: delta}}, domain.ReasonManualAdjustment)
			switch {
			case err == nil:
				ok.Add(1)
			case apperr.KindOf(err) == apperr.KindInsufficientStock:
				short.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := s.GetProduct(ctx, p.ID)
	if got.Quantity < 0 {
		t.Fatalf("quantity went negative: %d", got.Quantity)
	}
	// 50 adds, 150 removals against 50 + 50 units: at least 50 removals must fail
	if short.Load() < 50 || int(ok.Load())+int(short.Load()) != 200 {
		t.Fatalf("unexpected outcome ok=%d short=%d qty=%d", ok.Load(), short.Load(), got.Quantity)
	}

	ms, _ := s.ListMovements(ctx, p.ID, 1000)
	sum := 50
	for _, m := range ms {
		sum += m.Delta
	}
	if sum != got.Quantity || len(ms) != int(ok.Load()) {
		t.Fatalf("history does not add up: sum=%d qty=%d moves=%d", sum, got.Quantity, len(ms))
	}
}

func TestApplyStockDeltasAllOrNothing(t *testing.T) {
	s := New()
	a := seedProduct(t, s, "A", 10, 0, "1.00")
	b := seedProduct(t, s, "B", 1, 0, "1.00")
	ctx := context.Background()

	_, err := s.ApplyStockDeltas(ctx, []domain.StockDelta{
		{ProductID: a.ID, Delta: -5},
		{ProductID: b.ID, Delta: -2},
	}, domain.ReasonSale)
	if apperr.KindOf(err) != apperr.KindInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	gotA, _ := s.GetProduct(ctx, a.ID)
	gotB, _ := s.GetProduct(ctx, b.ID)
	if gotA.Quantity != 10 || gotB.Quantity != 1 {
		t.Fatalf("partial apply: a=%d b=%d", gotA.Quantity, gotB.Quantity)
	}

	_, err = s.ApplyStockDeltas(ctx, []domain.StockDelta{{ProductID: "missing", Delta: 1}}, domain.ReasonManualAdjustment)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOverlappingBatchesDoNotDeadlock(t *testing.T) {
	s := New()
	ps := make([]domain.Product, 5)
	for i := range ps {
		ps[i] = seedProduct(t, s, fmt.Sprintf("P%d", i), 1000, 0, "1.00")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 50; i++ {
		i := i
		g.Go(func() error {
			// alternate the listed order; locks are still taken ascending
			a, b := ps[i%5], ps[(i+2)%5]
			if i%2 == 0 {
				a, b = b, a
			}
			_, err := s.ApplyStockDeltas(gctx, []domain.StockDelta{
				{ProductID: a.ID, Delta: -1}, {ProductID: b.ID, Delta: -1},
			}, domain.ReasonSale)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	total := 0
	for _, p := range ps {
		got, _ := s.GetProduct(ctx, p.ID)
		total += got.Quantity
	}
	if total != 5*1000-100 {
		t.Fatalf("expected %d units left, got %d", 5*1000-100, total)
	}
}

func newOrder(t *testing.T, s *Store, items ...domain.PurchaseOrderItem) domain.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	sp, err := s.CreateSupplier(ctx, domain.Supplier{Name: "Supplier " + fmt.Sprint(len(items))})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	o, err := s.CreatePurchaseOrder(ctx, domain.PurchaseOrder{SupplierID: sp.ID, OrderedAt: time.Now().UTC(), Items: items})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestConcurrentReceiveAppliesOnce(t *testing.T) {
	s := New()
	p := seedProduct(t, s, "Milk", 3, 5, "1.20")
	q := seedProduct(t, s, "Bread", 0, 2, "2.50")
	o := newOrder(t, s,
		domain.PurchaseOrderItem{ProductID: p.ID, Quantity: 20, UnitPrice: decimal.RequireFromString("1.00")},
		domain.PurchaseOrderItem{ProductID: q.ID, Quantity: 7, UnitPrice: decimal.RequireFromString("2.00")},
	)
	ctx := context.Background()
	var scored atomic.Int32
	score := func(cur float64, _ domain.PurchaseOrder) float64 {
		scored.Add(1)
		return cur - 1
	}

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.ReceivePurchaseOrder(ctx, o.ID, time.Now().UTC(), score)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if apperr.KindOf(err) != apperr.KindInvalidStateTransition {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 || scored.Load() != 1 {
		t.Fatalf("expected exactly one receipt, got %d (scored %d)", success, scored.Load())
	}
	gotP, _ := s.GetProduct(ctx, p.ID)
	gotQ, _ := s.GetProduct(ctx, q.ID)
	if gotP.Quantity != 23 || gotQ.Quantity != 7 {
		t.Fatalf("stock applied wrongly: %d %d", gotP.Quantity, gotQ.Quantity)
	}
	sp, _ := s.GetSupplier(ctx, o.SupplierID)
	if sp.ReliabilityScore != 99 {
		t.Fatalf("expected score 99, got %v", sp.ReliabilityScore)
	}
	got, _ := s.GetPurchaseOrder(ctx, o.ID)
	if got.Status != domain.POStatusReceived || got.ReceivedAt == nil {
		t.Fatalf("unexpected order state %+v", got)
	}
}

func TestReceiveCancelledLeavesPending(t *testing.T) {
	s := New()
	p := seedProduct(t, s, "Tea", 1, 0, "3.00")
	o := newOrder(t, s, domain.PurchaseOrderItem{ProductID: p.ID, Quantity: 4, UnitPrice: decimal.RequireFromString("2.00")})

	// hold the product so the receipt blocks until the context expires
	unlock, err := s.locks.Lock(context.Background(), productKey(p.ID))
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = s.ReceivePurchaseOrder(ctx, o.ID, time.Now(), func(c float64, _ domain.PurchaseOrder) float64 { return c })
	unlock()
	if err == nil {
		t.Fatalf("expected context error")
	}
	got, _ := s.GetPurchaseOrder(context.Background(), o.ID)
	gotP, _ := s.GetProduct(context.Background(), p.ID)
	if got.Status != domain.POStatusPending || gotP.Quantity != 1 {
		t.Fatalf("cancelled receipt changed state: %s qty=%d", got.Status, gotP.Quantity)
	}
}

func TestLowStockDedupConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.CreateLowStockIfAbsent(ctx, domain.Notification{Message: "low", ProductID: "p-1"})
			if err != nil {
				t.Errorf("create: %v", err)
			}
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	if created.Load() != 1 {
		t.Fatalf("expected one notification, got %d", created.Load())
	}

	ns, _ := s.ListNotifications(ctx, domain.NotificationUnread)
	if len(ns) != 1 {
		t.Fatalf("expected one unread, got %d", len(ns))
	}
	first, err := s.MarkNotificationRead(ctx, ns[0].ID, time.Now())
	if err != nil {
		t.Fatalf("ack: %v", err)
	}
	again, err := s.MarkNotificationRead(ctx, ns[0].ID, time.Now().Add(time.Hour))
	if err != nil || again.Status != domain.NotificationRead || !again.ReadAt.Equal(*first.ReadAt) {
		t.Fatalf("re-ack should be a no-op: %+v %v", again, err)
	}
	if _, ok, _ := s.CreateLowStockIfAbsent(ctx, domain.Notification{Message: "low again", ProductID: "p-1"}); !ok {
		t.Fatalf("expected a new notification after ack")
	}
}

func TestSnapshotSeesWholeSales(t *testing.T) {
	s := New()
	a := seedProduct(t, s, "A", 1_000_000, 0, "1.50")
	b := seedProduct(t, s, "B", 1_000_000, 0, "2.25")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			_, _, err := s.RecordSale(ctx, domain.Sale{
				SoldAt:        time.Now().UTC(),
				PaymentMethod: domain.PaymentCash,
				Lines:         []domain.SaleLine{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}},
			})
			if err != nil && ctx.Err() == nil {
				t.Errorf("record sale: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		snap, err := s.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		qty := map[string]int{}
		for _, p := range snap.Products {
			qty[p.ID] = p.Quantity
		}
		sold := len(snap.Sales)
		if qty[a.ID] != 1_000_000-sold || qty[b.ID] != 1_000_000-sold {
			t.Fatalf("snapshot mixes states: sales=%d a=%d b=%d", sold, qty[a.ID], qty[b.ID])
		}
	}
	cancel()
	wg.Wait()
}

func TestRecordSalePricesFromProduct(t *testing.T) {
	s := New()
	p := seedProduct(t, s, "Soap", 5, 1, "3.40")
	ctx := context.Background()

	sale, ms, err := s.RecordSale(ctx, domain.Sale{
		SoldAt: time.Now().UTC(), PaymentMethod: domain.PaymentUPI,
		Lines: []domain.SaleLine{{ProductID: p.ID, Quantity: 2, UnitPrice: decimal.RequireFromString("0.01")}},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if sale.Total().StringFixed(2) != "6.80" || len(ms) != 1 || ms[0].After != 3 || ms[0].Reason != domain.ReasonSale {
		t.Fatalf("unexpected sale %+v movements %+v", sale, ms)
	}

	_, _, err = s.RecordSale(ctx, domain.Sale{
		SoldAt: time.Now().UTC(), PaymentMethod: domain.PaymentCash,
		Lines: []domain.SaleLine{{ProductID: p.ID, Quantity: 4}},
	})
	if apperr.KindOf(err) != apperr.KindInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	sales, _ := s.ListSales(ctx, 10)
	if len(sales) != 1 {
		t.Fatalf("failed sale must not be stored, got %d", len(sales))
	}
}

func TestCatalogConstraints(t *testing.T) {
	s := New()
	ctx := context.Background()
	c, _ := s.CreateCategory(ctx, domain.Category{Name: "Dairy"})
	if _, err := s.CreateCategory(ctx, domain.Category{Name: "dairy"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected duplicate name validation error, got %v", err)
	}
	p, err := s.CreateProduct(ctx, domain.Product{Name: "Cheese", CategoryID: c.ID, Barcode: "123"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{Name: "Other", CategoryID: c.ID, Barcode: "123"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected duplicate barcode error, got %v", err)
	}
	if err := s.DeleteCategory(ctx, c.ID); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected in-use category error, got %v", err)
	}

	p.Quantity = 999
	p.ReorderThreshold = 3
	updated, err := s.UpdateProduct(ctx, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Quantity != 0 || updated.ReorderThreshold != 3 {
		t.Fatalf("update must not touch quantity: %+v", updated)
	}

	sp, _ := s.CreateSupplier(ctx, domain.Supplier{Name: "Farm"})
	sp.ReliabilityScore = 1
	sp.Phone = "555"
	sp, _ = s.UpdateSupplier(ctx, sp)
	if sp.ReliabilityScore != 100 || sp.Phone != "555" {
		t.Fatalf("supplier update must keep the score: %+v", sp)
	}
}
