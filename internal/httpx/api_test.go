package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-retail-ledger/internal/catalog"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
	"github.com/ariefcatur/go-retail-ledger/internal/memstore"
	"github.com/ariefcatur/go-retail-ledger/internal/notify"
	"github.com/ariefcatur/go-retail-ledger/internal/purchasing"
	"github.com/ariefcatur/go-retail-ledger/internal/redisx"
	"github.com/ariefcatur/go-retail-ledger/internal/reports"
	"github.com/ariefcatur/go-retail-ledger/internal/sales"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type harness struct {
	t   *testing.T
	srv *httptest.Server
}

func newHarness(t *testing.T, idem Idempotency) *harness {
	t.Helper()
	log := zap.NewNop()
	store := memstore.New()
	engine := notify.New(store, log)
	led := ledger.New(store, log, engine)

	api := &API{
		Catalog: catalog.New(store, log),
		Ledger:  led,
		Orders:  purchasing.NewManager(store, log),
		Reconciler: purchasing.NewReconciler(purchasing.ReconcilerConfig{
			Store: store, Ledger: led, Notifier: engine, Log: log,
		}),
		Sales:     sales.New(store, led, nil, log),
		Notify:    engine,
		Reports:   reports.New(store, time.UTC, log),
		Idem:      idem,
		JWTSecret: testSecret,
		Log:       log,
	}
	r := NewRouter(log, []string{"http://localhost:3000"})
	api.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv}
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// do sends body as JSON with the given role's token ("" for none) and decodes
// the response into out when out is non-nil.
func (h *harness) do(method, path, role string, body any, out any, headers ...string) *http.Response {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	if err != nil {
		h.t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+token(h.t, "user-"+role, role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			h.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func (h *harness) seed() (domain.Product, domain.Supplier) {
	h.t.Helper()
	var c domain.Category
	if resp := h.do("POST", "/api/categories", "ADMIN", map[string]any{"name": "Beverages"}, &c); resp.StatusCode != http.StatusCreated {
		h.t.Fatalf("create category: %d", resp.StatusCode)
	}
	var p domain.Product
	resp := h.do("POST", "/api/products", "MANAGER", map[string]any{
		"name": "Cola", "category_id": c.ID, "unit_price": "5.00", "quantity": 10, "reorder_threshold": 5,
	}, &p)
	if resp.StatusCode != http.StatusCreated {
		h.t.Fatalf("create product: %d", resp.StatusCode)
	}
	var sp domain.Supplier
	if resp := h.do("POST", "/api/suppliers", "ADMIN", map[string]any{"name": "Acme", "email": "ops@acme.test"}, &sp); resp.StatusCode != http.StatusCreated {
		h.t.Fatalf("create supplier: %d", resp.StatusCode)
	}
	return p, sp
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	resp, err := http.Get(h.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthentication(t *testing.T) {
	h := newHarness(t, nil)

	var body errorBody
	if resp := h.do("GET", "/api/products", "", nil, &body); resp.StatusCode != http.StatusUnauthorized || body.Error != "UNAUTHORIZED" {
		t.Fatalf("expected 401 without token, got %d %+v", resp.StatusCode, body)
	}
	if resp := h.do("GET", "/api/products", "", nil, nil, "Authorization", "Bearer not-a-jwt"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", resp.StatusCode)
	}

	other, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "ADMIN", RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}}).
		SignedString([]byte("wrong-secret"))
	if resp := h.do("GET", "/api/products", "", nil, nil, "Authorization", "Bearer "+other); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong signature, got %d", resp.StatusCode)
	}

	var ps []domain.Product
	if resp := h.do("GET", "/api/products", "CASHIER", nil, &ps); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for cashier list, got %d", resp.StatusCode)
	}
}

func TestRoleEnforcement(t *testing.T) {
	h := newHarness(t, nil)

	var body errorBody
	resp := h.do("POST", "/api/categories", "MANAGER", map[string]any{"name": "Snacks"}, &body)
	if resp.StatusCode != http.StatusForbidden || body.Error != "UNAUTHORIZED" || body.Detail == "" {
		t.Fatalf("expected 403 UNAUTHORIZED for manager category create, got %d %+v", resp.StatusCode, body)
	}
	p, sp := h.seed()

	resp = h.do("POST", "/api/purchase-orders", "CASHIER", map[string]any{
		"supplier_id": sp.ID,
		"items":       []map[string]any{{"product_id": p.ID, "quantity": 1, "unit_price": "1.00"}},
	}, &body)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier PO create, got %d", resp.StatusCode)
	}
}

func TestPurchaseOrderReceiveFlow(t *testing.T) {
	h := newHarness(t, nil)
	p, sp := h.seed()

	var o domain.PurchaseOrder
	resp := h.do("POST", "/api/purchase-orders", "MANAGER", map[string]any{
		"supplier_id": sp.ID,
		"items":       []map[string]any{{"product_id": p.ID, "quantity": 20, "unit_price": "5.00"}},
	}, &o)
	if resp.StatusCode != http.StatusCreated || o.Status != domain.POStatusPending {
		t.Fatalf("create order: %d %+v", resp.StatusCode, o)
	}

	var received domain.PurchaseOrder
	if resp := h.do("POST", "/api/purchase-orders/"+o.ID+"/receive", "ADMIN", nil, &received); resp.StatusCode != http.StatusOK {
		t.Fatalf("receive: %d", resp.StatusCode)
	}
	if received.Status != domain.POStatusReceived || received.ReceivedAt == nil {
		t.Fatalf("expected RECEIVED with timestamp, got %+v", received)
	}

	var body errorBody
	if resp := h.do("POST", "/api/purchase-orders/"+o.ID+"/receive", "ADMIN", nil, &body); resp.StatusCode != http.StatusConflict || body.Error != "INVALID_STATE_TRANSITION" {
		t.Fatalf("expected 409 INVALID_STATE_TRANSITION, got %d %+v", resp.StatusCode, body)
	}

	var got domain.Product
	h.do("GET", "/api/products/"+p.ID, "CASHIER", nil, &got)
	if got.Quantity != 30 {
		t.Fatalf("expected quantity 30, got %d", got.Quantity)
	}

	var d domain.PurchaseOrderDetails
	h.do("GET", "/api/purchase-orders/"+o.ID+"/details", "CASHIER", nil, &d)
	if d.SupplierName != "Acme" || len(d.Lines) != 1 || d.Lines[0].ProductName != "Cola" || d.TotalAmount.StringFixed(2) != "100.00" {
		t.Fatalf("unexpected details %+v", d)
	}

	if resp := h.do("GET", "/api/purchase-orders/nope", "CASHIER", nil, &body); resp.StatusCode != http.StatusNotFound || body.Error != "NOT_FOUND" {
		t.Fatalf("expected 404, got %d %+v", resp.StatusCode, body)
	}
}

func TestSaleAndLowStockNotification(t *testing.T) {
	h := newHarness(t, nil)
	p, _ := h.seed()

	var s domain.Sale
	resp := h.do("POST", "/api/sales", "CASHIER", map[string]any{
		"payment_method": "CASH",
		"lines":          []map[string]any{{"product_id": p.ID, "quantity": 6}},
	}, &s)
	if resp.StatusCode != http.StatusCreated || s.Total().StringFixed(2) != "30.00" {
		t.Fatalf("record sale: %d total=%s", resp.StatusCode, s.Total())
	}

	var body errorBody
	resp = h.do("POST", "/api/sales", "CASHIER", map[string]any{
		"payment_method": "CARD",
		"lines":          []map[string]any{{"product_id": p.ID, "quantity": 5}},
	}, &body)
	if resp.StatusCode != http.StatusConflict || body.Error != "INSUFFICIENT_STOCK" {
		t.Fatalf("expected 409 INSUFFICIENT_STOCK, got %d %+v", resp.StatusCode, body)
	}

	var ns []domain.Notification
	h.do("GET", "/api/notifications?status=unread", "CASHIER", nil, &ns)
	if len(ns) != 1 || ns[0].Type != domain.NotificationLowStock {
		t.Fatalf("expected one LOW_STOCK notification, got %+v", ns)
	}

	var acked domain.Notification
	if resp := h.do("POST", "/api/notifications/"+ns[0].ID+"/ack", "CASHIER", nil, &acked); resp.StatusCode != http.StatusOK || acked.Status != domain.NotificationRead {
		t.Fatalf("ack: %d %+v", resp.StatusCode, acked)
	}
	h.do("GET", "/api/notifications?status=unread", "CASHIER", nil, &ns)
	if len(ns) != 0 {
		t.Fatalf("expected no unread notifications, got %d", len(ns))
	}

	var stats reports.DashboardStats
	h.do("GET", "/api/dashboard/stats", "CASHIER", nil, &stats)
	if stats.TotalSales != 1 || stats.TotalRevenue.StringFixed(2) != "30.00" || stats.LowStockCount != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestStockAdjustments(t *testing.T) {
	h := newHarness(t, nil)
	p, _ := h.seed()

	var got domain.StockMovement
	if resp := h.do("POST", "/api/products/"+p.ID+"/stock", "MANAGER", map[string]any{"delta": -3}, &got); resp.StatusCode != http.StatusOK ||
		got.Before != 10 || got.After != 7 || got.Delta != -3 || got.Reason != domain.ReasonManualAdjustment {
		t.Fatalf("adjust: %d %+v", resp.StatusCode, got)
	}
	var body errorBody
	for _, reason := range []string{"SALE", "PURCHASE_RECEIPT"} {
		if resp := h.do("POST", "/api/products/"+p.ID+"/stock", "MANAGER", map[string]any{"delta": 4, "reason": reason}, &body); resp.StatusCode != http.StatusBadRequest || body.Error != "VALIDATION_ERROR" {
			t.Fatalf("reason %s: expected 400, got %d %+v", reason, resp.StatusCode, body)
		}
	}
	if resp := h.do("POST", "/api/products/"+p.ID+"/stock", "MANAGER", map[string]any{"delta": 0}, &body); resp.StatusCode != http.StatusBadRequest || body.Error != "VALIDATION_ERROR" {
		t.Fatalf("expected 400, got %d %+v", resp.StatusCode, body)
	}
	if resp := h.do("POST", "/api/products/"+p.ID+"/stock", "CASHIER", map[string]any{"delta": 1}, &body); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", resp.StatusCode)
	}

	var ms []domain.StockMovement
	resp := h.do("POST", "/api/stock/adjustments", "ADMIN", map[string]any{
		"reason":      "MANUAL_ADJUSTMENT",
		"adjustments": []map[string]any{{"product_id": p.ID, "delta": 2}, {"product_id": p.ID, "delta": 1}},
	}, &ms)
	if resp.StatusCode != http.StatusOK || len(ms) != 1 || ms[0].After != 10 {
		t.Fatalf("batch: %d %+v", resp.StatusCode, ms)
	}

	h.do("GET", "/api/products/"+p.ID+"/movements?limit=10", "CASHIER", nil, &ms)
	if len(ms) != 2 || ms[0].After != 10 || ms[1].After != 7 {
		t.Fatalf("unexpected history %+v", ms)
	}
}

func TestReportValidation(t *testing.T) {
	h := newHarness(t, nil)
	var body errorBody
	for _, path := range []string{
		"/api/reports/top-products?limit=0",
		"/api/reports/sales-by-date?days=0",
		"/api/reports/sales-by-date?days=abc",
	} {
		if resp := h.do("GET", path, "CASHIER", nil, &body); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, resp.StatusCode)
		}
	}
	var days []reports.DailySales
	if resp := h.do("GET", "/api/reports/sales-by-date?days=3", "CASHIER", nil, &days); resp.StatusCode != http.StatusOK || len(days) != 3 {
		t.Fatalf("expected 3 zero-filled days, got %d %+v", resp.StatusCode, days)
	}
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	h := newHarness(t, redisx.NewIdempotency(rdb))
	p, sp := h.seed()

	req := map[string]any{
		"supplier_id": sp.ID,
		"items":       []map[string]any{{"product_id": p.ID, "quantity": 2, "unit_price": "4.50"}},
	}
	var first, second domain.PurchaseOrder
	resp := h.do("POST", "/api/purchase-orders", "ADMIN", req, &first, "Idempotency-Key", "k-1")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create: %d", resp.StatusCode)
	}
	resp = h.do("POST", "/api/purchase-orders", "ADMIN", req, &second, "Idempotency-Key", "k-1")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Idempotent-Replayed") != "true" || second.ID != first.ID {
		t.Fatalf("replay: %d id=%s want %s", resp.StatusCode, second.ID, first.ID)
	}

	var orders []domain.PurchaseOrder
	h.do("GET", "/api/purchase-orders", "CASHIER", nil, &orders)
	if len(orders) != 1 {
		t.Fatalf("expected one order, got %d", len(orders))
	}

	// the same key from another actor is a different request
	var other domain.PurchaseOrder
	resp = h.do("POST", "/api/purchase-orders", "MANAGER", req, &other, "Idempotency-Key", "k-1")
	if resp.StatusCode != http.StatusCreated || resp.Header.Get("Idempotent-Replayed") != "" || other.ID == first.ID {
		t.Fatalf("other actor: %d id=%s", resp.StatusCode, other.ID)
	}

	// a failed create releases the key
	var body errorBody
	bad := map[string]any{"supplier_id": "missing", "items": req["items"]}
	if resp := h.do("POST", "/api/purchase-orders", "ADMIN", bad, &body, "Idempotency-Key", "k-2"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if mr.Exists("idem:po:create:user-ADMIN:k-2") {
		t.Fatalf("expected key to be released after failure")
	}
}
