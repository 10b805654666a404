package memstore

import (
	"context"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
)

func (s *Store) insertNotificationLocked(n domain.Notification) domain.Notification {
	n.ID = newID()
	n.Status = domain.NotificationUnread
	n.ReadAt = nil
	s.notifIdx[n.ID] = len(s.notifications)
	s.notifications = append(s.notifications, n)
	return n
}

// CreateLowStockIfAbsent inserts n unless the product already has an unread
// LOW_STOCK notification, in which case that one is returned with false.
func (s *Store) CreateLowStockIfAbsent(ctx context.Context, n domain.Notification) (domain.Notification, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.unreadLow[n.ProductID]; ok {
		return s.notifications[s.notifIdx[id]], false, nil
	}
	n.Type = domain.NotificationLowStock
	n = s.insertNotificationLocked(n)
	s.unreadLow[n.ProductID] = n.ID
	return n, true, nil
}

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertNotificationLocked(n), nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.notifIdx[id]
	if !ok {
		return domain.Notification{}, apperr.NotFound("notification %s not found", id)
	}
	return s.notifications[i], nil
}

// MarkNotificationRead is idempotent: an already read notification is returned unchanged.
func (s *Store) MarkNotificationRead(ctx context.Context, id string, at time.Time) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.notifIdx[id]
	if !ok {
		return domain.Notification{}, apperr.NotFound("notification %s not found", id)
	}
	n := s.notifications[i]
	if n.Status == domain.NotificationRead {
		return n, nil
	}
	n.Status = domain.NotificationRead
	n.ReadAt = &at
	s.notifications[i] = n
	if n.Type == domain.NotificationLowStock && s.unreadLow[n.ProductID] == n.ID {
		delete(s.unreadLow, n.ProductID)
	}
	return n, nil
}

// ListNotifications returns notifications newest first; an empty status means all.
func (s *Store) ListNotifications(ctx context.Context, status domain.NotificationStatus) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Notification, 0)
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if status != "" && n.Status != status {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
