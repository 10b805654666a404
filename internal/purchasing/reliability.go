package purchasing

import (
	"math"
	"time"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// ReliabilityPolicy scores a supplier delivery and folds it into the running
// score with an exponential moving average. On-time deliveries sample 100;
// late ones lose LatePenaltyPerDay per started day past ExpectedLeadTime.
type ReliabilityPolicy struct {
	ExpectedLeadTime  time.Duration
	Weight            float64 // 0 < Weight <= 1
	LatePenaltyPerDay float64
}

func DefaultPolicy() ReliabilityPolicy {
	return ReliabilityPolicy{
		ExpectedLeadTime:  7 * 24 * time.Hour,
		Weight:            0.2,
		LatePenaltyPerDay: 10,
	}
}

func (p ReliabilityPolicy) weight() float64 {
	if p.Weight <= 0 || p.Weight > 1 {
		return DefaultPolicy().Weight
	}
	return p.Weight
}

// Sample scores a single delivery in [MinScore, MaxScore].
func (p ReliabilityPolicy) Sample(orderedAt, receivedAt time.Time) float64 {
	lead := receivedAt.Sub(orderedAt)
	if lead <= p.ExpectedLeadTime {
		return MaxScore
	}
	lateDays := math.Ceil((lead - p.ExpectedLeadTime).Hours() / 24)
	return clamp(MaxScore - math.Max(p.LatePenaltyPerDay, 0)*lateDays)
}

// Next returns the updated score, rounded to two decimals.
func (p ReliabilityPolicy) Next(current float64, orderedAt, receivedAt time.Time) float64 {
	w := p.weight()
	next := clamp(current)*(1-w) + p.Sample(orderedAt, receivedAt)*w
	return clamp(math.Round(next*100) / 100)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Min(MaxScore, math.Max(MinScore, v))
}
