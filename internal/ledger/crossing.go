package ledger

import (
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/domain"
)

// Crossing is a move across a product's reorder threshold.
type Crossing struct {
	ProductID string
	Direction domain.Direction
	Before    int
	After     int
	Threshold int
	Reason    domain.Reason
	At        time.Time
}

// DetectCrossing reports whether m moved the quantity across the threshold:
// DOWN is above -> at-or-below, UP is at-or-below -> above.
func DetectCrossing(m domain.StockMovement) (Crossing, bool) {
	c := Crossing{
		ProductID: m.ProductID,
		Before:    m.Before,
		After:     m.After,
		Threshold: m.Threshold,
		Reason:    m.Reason,
		At:        m.OccurredAt,
	}
	switch {
	case m.Before > m.Threshold && m.After <= m.Threshold:
		c.Direction = domain.DirectionDown
	case m.Before <= m.Threshold && m.After > m.Threshold:
		c.Direction = domain.DirectionUp
	default:
		return Crossing{}, false
	}
	return c, true
}

// Payload converts c to its event payload.
func (c Crossing) Payload() domain.ThresholdCrossedPayload {
	return domain.ThresholdCrossedPayload{
		ProductID: c.ProductID,
		Direction: c.Direction,
		Before:    c.Before,
		After:     c.After,
		Threshold: c.Threshold,
		Reason:    c.Reason,
	}
}

// FromPayload is the inverse of Payload, used by event consumers.
func FromPayload(p domain.ThresholdCrossedPayload, at time.Time) Crossing {
	return Crossing{
		ProductID: p.ProductID,
		Direction: p.Direction,
		Before:    p.Before,
		After:     p.After,
		Threshold: p.Threshold,
		Reason:    p.Reason,
		At:        at,
	}
}
