package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventThresholdCrossed      = "ThresholdCrossed"
	EventPurchaseOrderReceived = "PurchaseOrderReceived"
	EventSaleRecorded          = "SaleRecorded"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "retail-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // product_id / order_id / sale_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type Direction string

const (
	DirectionDown Direction = "DOWN" // above -> at-or-below
	DirectionUp   Direction = "UP"   // at-or-below -> above
)

type ThresholdCrossedPayload struct {
	ProductID string    `json:"product_id"`
	Direction Direction `json:"direction"`
	Before    int       `json:"before"`
	After     int       `json:"after"`
	Threshold int       `json:"threshold"`
	Reason    Reason    `json:"reason"`
}

type PurchaseOrderReceivedPayload struct {
	OrderID    string       `json:"order_id"`
	SupplierID string       `json:"supplier_id"`
	ReceivedAt time.Time    `json:"received_at"`
	Items      []StockDelta `json:"items"`
}

type SaleRecordedPayload struct {
	SaleID string          `json:"sale_id"`
	Lines  []SaleLine      `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}
