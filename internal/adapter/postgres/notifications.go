package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

// NotificationRepository stores farmer notifications.
type NotificationRepository struct {
	db *pgxpool.Pool
}

// NewNotificationRepository creates a NotificationRepository.
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateRiskAlert persists a risk-alert notification.
func (r *NotificationRepository) CreateRiskAlert(ctx context.Context, n domain.Notification) error {
	var cycleID *string
	if n.CropCycleID != "" {
		cycleID = &n.CropCycleID
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, farmer_id, crop_cycle_id, type, level, title, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.FarmerID, cycleID, n.Type, n.Level, n.Title, n.Body, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns up to limit of the farmer's notifications, newest
// first.
func (r *NotificationRepository) ListNotifications(ctx context.Context, farmerID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, farmer_id, COALESCE(crop_cycle_id, ''), type, level, title, body, is_read, created_at
		FROM notifications
		WHERE farmer_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC
		LIMIT $3`, farmerID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	notifications, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Notification, error) {
		var n domain.Notification
		err := row.Scan(&n.ID, &n.FarmerID, &n.CropCycleID, &n.Type, &n.Level,
			&n.Title, &n.Body, &n.IsRead, &n.CreatedAt)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags the farmer's notification as read. Marking an already read
// notification succeeds.
func (r *NotificationRepository) MarkRead(ctx context.Context, farmerID, notificationID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND farmer_id = $2`,
		notificationID, farmerID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}
