package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Barcode          string          `json:"barcode,omitempty"`
	CategoryID       string          `json:"category_id"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	ReorderThreshold int             `json:"reorder_threshold"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p Product) LowStock() bool { return p.Quantity <= p.ReorderThreshold }

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Supplier struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone,omitempty"`
	Email            string    `json:"email,omitempty"`
	Address          string    `json:"address,omitempty"`
	ReliabilityScore float64   `json:"reliability_score"`
	CreatedAt        time.Time `json:"created_at"`
}

type PurchaseOrder struct {
	ID         string              `json:"id"`
	SupplierID string              `json:"supplier_id"`
	Status     POStatus            `json:"status"` // lihat status.go
	OrderedAt  time.Time           `json:"ordered_at"`
	ReceivedAt *time.Time          `json:"received_at,omitempty"`
	Items      []PurchaseOrderItem `json:"items"`
}

// Total is the order value at the ordered prices.
func (o PurchaseOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Deltas turns the order items into positive stock deltas, one per item.
func (o PurchaseOrder) Deltas() []StockDelta {
	out := make([]StockDelta, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, StockDelta{ProductID: it.ProductID, Delta: it.Quantity})
	}
	return out
}

type PurchaseOrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (it PurchaseOrderItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// PurchaseOrderDetails is the read-only display view of an order.
type PurchaseOrderDetails struct {
	PurchaseOrder
	SupplierName string              `json:"supplier_name"`
	Lines        []PurchaseOrderLine `json:"lines"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
}

type PurchaseOrderLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentUPI    PaymentMethod = "UPI"
	PaymentWallet PaymentMethod = "WALLET"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentWallet:
		return true
	}
	return false
}

type Sale struct {
	ID            string        `json:"id"`
	SoldAt        time.Time     `json:"sold_at"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CashierID     string        `json:"cashier_id,omitempty"`
	Lines         []SaleLine    `json:"lines"`
}

func (s Sale) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

type SaleLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l SaleLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type NotificationType string

const (
	NotificationLowStock NotificationType = "LOW_STOCK"
	NotificationGeneric  NotificationType = "GENERIC"
)

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

type Notification struct {
	ID        string             `json:"id"`
	Type      NotificationType   `json:"type"`
	Status    NotificationStatus `json:"status"`
	Message   string             `json:"message"`
	ProductID string             `json:"product_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	ReadAt    *time.Time         `json:"read_at,omitempty"`
}

type Reason string

const (
	ReasonSale             Reason = "SALE"
	ReasonPurchaseReceipt  Reason = "PURCHASE_RECEIPT"
	ReasonManualAdjustment Reason = "MANUAL_ADJUSTMENT"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonSale, ReasonPurchaseReceipt, ReasonManualAdjustment:
		return true
	}
	return false
}

type StockDelta struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
}

// StockMovement is one applied ledger entry.
type StockMovement struct {
	ProductID  string    `json:"product_id"`
	Delta      int       `json:"delta"`
	Before     int       `json:"before"`
	After      int       `json:"after"`
	Threshold  int       `json:"threshold"`
	Reason     Reason    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Snapshot is a coherent copy of the data the reports are computed from.
type Snapshot struct {
	TakenAt    time.Time
	Products   []Product
	Categories []Category
	Sales      []Sale
}
