package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/models"
)

type NotificationRepo struct {
	DB DBTX
}

const createNotification = `-- name: CreateNotification
INSERT INTO notifications (id, user_id, title, message, type, read, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, title, message, type, read, created_at
`

func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createNotification, n.ID, n.UserID, n.Title, n.Message, n.Type, n.Read, n.CreatedAt)
	created, err := pgx.CollectOneRow(rows, rowToNotification)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const listNotifications = `-- name: ListNotifications
SELECT id, user_id, title, message, type, read, created_at
FROM notifications
WHERE user_id = $1 AND (NOT $2::boolean OR read = FALSE)
ORDER BY created_at DESC
`

func (r *NotificationRepo) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	rows, _ := r.DB.Query(ctx, listNotifications, userID, unreadOnly)
	notifications, err := pgx.CollectRows(rows, rowToNotification)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return notifications, nil
}

const markNotificationRead = `-- name: MarkNotificationRead
UPDATE notifications
SET read = TRUE
WHERE id = $2 AND user_id = $1
`

func (r *NotificationRepo) MarkRead(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, markNotificationRead, userID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

const markAllNotificationsRead = `-- name: MarkAllNotificationsRead
UPDATE notifications
SET read = TRUE
WHERE user_id = $1 AND read = FALSE
`

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.DB.Exec(ctx, markAllNotificationsRead, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToNotification(row pgx.CollectableRow) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt)
	return n, err
}
