// Package events is the outbound domain-event port. The Kafka producer
// implements it in production; Nop is used when no brokers are configured.
package events

import "context"

type Publisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload any) error
}

type Nop struct{}

func (Nop) Publish(context.Context, string, string, string, any) error { return nil }

// OrNop returns p, or Nop when p is nil.
func OrNop(p Publisher) Publisher {
	if p == nil {
		return Nop{}
	}
	return p
}
