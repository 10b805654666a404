package kafka

import (
	"context"
	"strconv"

	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/events"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/segmentio/kafka-go"
)

type sender interface {
	Send(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

// Publisher implements events.Publisher on top of a Producer.
type Publisher struct {
	out     sender
	service string
}

var _ events.Publisher = (*Publisher)(nil)

func NewPublisher(p *Producer, service string) *Publisher {
	return &Publisher{out: p, service: service}
}

func (p *Publisher) Publish(ctx context.Context, topic, key, eventType string, payload any) error {
	env, err := NewEnvelope(eventType, p.service, key, middleware.GetReqID(ctx), payload)
	if err != nil {
		return err
	}
	return p.out.Send(ctx, topic, domain.PartitionKey(key), MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(eventVersion))},
	)
}

// CrossingSink publishes threshold crossings for out-of-process consumers.
type CrossingSink struct {
	pub events.Publisher
}

var _ ledger.CrossingSink = (*CrossingSink)(nil)

func NewCrossingSink(pub events.Publisher) *CrossingSink {
	return &CrossingSink{pub: pub}
}

func (s *CrossingSink) ThresholdCrossed(ctx context.Context, c ledger.Crossing) error {
	return s.pub.Publish(ctx, domain.TopicThresholdCrossed, c.ProductID, domain.EventThresholdCrossed, c.Payload())
}
