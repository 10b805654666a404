package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, type, status, message, product_id, created_at, read_at`

func scanNotification(row pgx.Row) (domain.Notification, error) {
	var (
		n           domain.Notification
		typ, status string
		productID   *string
	)
	if err := row.Scan(&n.ID, &typ, &status, &n.Message, &productID, &n.CreatedAt, &n.ReadAt); err != nil {
		return domain.Notification{}, err
	}
	n.Type = domain.NotificationType(typ)
	n.Status = domain.NotificationStatus(status)
	n.ProductID = deref(productID)
	return n, nil
}

func (s *Store) insertNotification(ctx context.Context, n domain.Notification, onConflict string) (domain.Notification, error) {
	n.ID = newID()
	n.Status = domain.NotificationUnread
	n.ReadAt = nil
	return scanNotification(s.pool.QueryRow(ctx, `
		INSERT INTO notifications(id, type, status, message, product_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`+onConflict+`
		RETURNING `+notificationColumns,
		n.ID, string(n.Type), string(n.Status), n.Message, nullable(n.ProductID), n.CreatedAt,
	))
}

// CreateLowStockIfAbsent relies on the partial unique index over unread
// LOW_STOCK rows. When the insert is skipped the existing row is returned; if
// that row was acknowledged in between, the insert is tried again.
func (s *Store) CreateLowStockIfAbsent(ctx context.Context, n domain.Notification) (domain.Notification, bool, error) {
	n.Type = domain.NotificationLowStock
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		created, err := s.insertNotification(ctx, n, `
		ON CONFLICT (product_id) WHERE type = 'LOW_STOCK' AND status = 'unread' DO NOTHING`)
		if err == nil {
			return created, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.Notification{}, false, err
		}
		existing, err := scanNotification(s.pool.QueryRow(ctx, `
			SELECT `+notificationColumns+` FROM notifications
			WHERE product_id=$1 AND type='LOW_STOCK' AND status='unread'`, n.ProductID))
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.Notification{}, false, err
		}
	}
	return domain.Notification{}, false, apperr.Conflict(nil, "low stock notification for %s kept changing", n.ProductID)
}

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	return s.insertNotification(ctx, n, "")
}

func (s *Store) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	n, err := scanNotification(s.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Notification{}, apperr.NotFound("notification %s not found", id)
	}
	return n, err
}

// MarkNotificationRead is idempotent: an already read notification is returned unchanged.
func (s *Store) MarkNotificationRead(ctx context.Context, id string, at time.Time) (domain.Notification, error) {
	n, err := scanNotification(s.pool.QueryRow(ctx, `
		UPDATE notifications SET status='read', read_at=$2
		WHERE id=$1 AND status='unread'
		RETURNING `+notificationColumns, id, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return s.GetNotification(ctx, id)
	}
	return n, err
}

// ListNotifications returns notifications newest first; an empty status means all.
func (s *Store) ListNotifications(ctx context.Context, status domain.NotificationStatus) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC, id DESC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
