// Package notifier consumes threshold crossings from Kafka and feeds them to
// the notification engine in a separate process.
package notifier

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	kafkax "github.com/ariefcatur/go-retail-ledger/internal/kafka"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Deduper claims event ids; redisx.Dedup in production.
type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type Service struct {
	Sink  ledger.CrossingSink // notify.Engine
	Dedup Deduper
	Log   *zap.Logger
}

// HandleThresholdCrossed dipasang sebagai handler consumer.
func (s *Service) HandleThresholdCrossed(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		// poison message, commit and move on
		s.Log.Error("drop undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != domain.EventThresholdCrossed {
		return nil
	} // ignore

	// 2) dedup via Redis (pakai event_id)
	first, err := s.Dedup.Claim(ctx, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		s.Log.Debug("duplicate event", zap.String("event_id", env.EventID))
		return nil
	}

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[domain.ThresholdCrossedPayload](env.Payload)
	if err != nil {
		s.Log.Error("drop undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	// 4) hand off; release the claim on failure so the consumer retry is not skipped as a duplicate
	if err := s.Sink.ThresholdCrossed(ctx, ledger.FromPayload(p, env.OccurredAt)); err != nil {
		if ferr := s.Dedup.Forget(context.WithoutCancel(ctx), env.EventID); ferr != nil {
			s.Log.Warn("dedup forget failed", zap.String("event_id", env.EventID), zap.Error(ferr))
		}
		return fmt.Errorf("threshold crossed %s: %w", p.ProductID, err)
	}
	return nil
}
