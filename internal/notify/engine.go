// Package notify materializes low-stock alerts from threshold crossings.
//
// A downward crossing creates a LOW_STOCK notification unless the product
// already has an unread one. Upward crossings change nothing: an unread alert
// stays visible until someone acknowledges it, even if stock has recovered.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/authz"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
	"go.uber.org/zap"
)

type Store interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	// CreateLowStockIfAbsent must be atomic with respect to itself and
	// MarkNotificationRead for the same product.
	CreateLowStockIfAbsent(ctx context.Context, n domain.Notification) (domain.Notification, bool, error)
	CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error)
	GetNotification(ctx context.Context, id string) (domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string, at time.Time) (domain.Notification, error)
	ListNotifications(ctx context.Context, status domain.NotificationStatus) ([]domain.Notification, error)
}

type Engine struct {
	store Store
	now   func() time.Time
	log   *zap.Logger
}

var _ ledger.CrossingSink = (*Engine)(nil)

func New(store Store, log *zap.Logger) *Engine {
	return &Engine{store: store, now: time.Now, log: log}
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ThresholdCrossed implements ledger.CrossingSink.
func (e *Engine) ThresholdCrossed(ctx context.Context, c ledger.Crossing) error {
	if c.Direction != domain.DirectionDown {
		return nil
	}
	name := c.ProductID
	if p, err := e.store.GetProduct(ctx, c.ProductID); err == nil {
		name = p.Name
	}
	n, created, err := e.store.CreateLowStockIfAbsent(ctx, domain.Notification{
		Type:      domain.NotificationLowStock,
		Message:   fmt.Sprintf("Low stock: %s has %d unit(s) left (reorder threshold %d)", name, c.After, c.Threshold),
		ProductID: c.ProductID,
		CreatedAt: e.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("create low stock notification: %w", err)
	}
	if created {
		e.log.Info("low stock notification created", zap.String("notification_id", n.ID), zap.String("product_id", c.ProductID))
	} else {
		e.log.Debug("unread low stock notification exists", zap.String("notification_id", n.ID), zap.String("product_id", c.ProductID))
	}
	return nil
}

// Notify creates a GENERIC notification.
func (e *Engine) Notify(ctx context.Context, message, productID string) (domain.Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.Notification{}, apperr.Validation("message is required")
	}
	return e.store.CreateNotification(ctx, domain.Notification{
		Type:      domain.NotificationGeneric,
		Message:   message,
		ProductID: productID,
		CreatedAt: e.now().UTC(),
	})
}

// Acknowledge marks a notification read. Acknowledging twice is a no-op.
func (e *Engine) Acknowledge(ctx context.Context, actor authz.Actor, id string) (domain.Notification, error) {
	if err := authz.Require(actor, authz.CapNotificationAck); err != nil {
		return domain.Notification{}, err
	}
	if id == "" {
		return domain.Notification{}, apperr.Validation("notification id is required")
	}
	n, err := e.store.MarkNotificationRead(ctx, id, e.now().UTC())
	if err != nil {
		return domain.Notification{}, err
	}
	e.log.Info("notification acknowledged", zap.String("notification_id", id), zap.String("actor", actor.ID))
	return n, nil
}

// Filter narrows List. A zero Filter lists everything.
type Filter struct {
	Status domain.NotificationStatus
}

// ParseStatus accepts "", "unread" or "read".
func ParseStatus(s string) (domain.NotificationStatus, error) {
	switch st := domain.NotificationStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case "", domain.NotificationUnread, domain.NotificationRead:
		return st, nil
	default:
		return "", apperr.Validation("unknown notification status %q", s)
	}
}

// List returns notifications newest first.
func (e *Engine) List(ctx context.Context, actor authz.Actor, f Filter) ([]domain.Notification, error) {
	if err := authz.Require(actor, authz.CapNotificationRead); err != nil {
		return nil, err
	}
	if _, err := ParseStatus(string(f.Status)); err != nil {
		return nil, err
	}
	return e.store.ListNotifications(ctx, f.Status)
}
