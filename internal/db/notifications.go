package db

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"

	"github.com/tgienger/planx/internal/models"
)

var notificationColumns = []string{
	"id", "user_id", "task_id", "notification_text", "is_read", "created_at", "updated_at",
}

func scanNotification(s scanner) (*models.Notification, error) {
	n := &models.Notification{}
	err := s.Scan(&n.ID, &n.UserID, &n.TaskID, &n.NotificationText, &n.IsRead, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return n, nil
}

// CreateNotifications adds the same notification for every user in userIDs
func (db *DB) CreateNotifications(ctx context.Context, text string, taskID *int64, userIDs []int64) ([]models.Notification, error) {
	now := db.now()
	out := make([]models.Notification, 0, len(userIDs))
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		for _, uid := range userIDs {
			id, err := db.insert(ctx, tx, db.builder.
				Insert("notifications").
				Columns("user_id", "task_id", "notification_text", "is_read", "created_at", "updated_at").
				Values(uid, taskID, text, false, now, now))
			if err != nil {
				return err
			}
			out = append(out, models.Notification{
				ID:               id,
				UserID:           uid,
				TaskID:           taskID,
				NotificationText: text,
				CreatedAt:        now,
				UpdatedAt:        now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetNotification retrieves a notification by ID
func (db *DB) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	query, args, err := db.builder.
		Select(notificationColumns...).
		From("notifications").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanNotification(db.QueryRowContext(ctx, query, args...))
}

// ListUserNotifications returns a user's notifications, newest first
func (db *DB) ListUserNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	query, args, err := db.builder.
		Select(notificationColumns...).
		From("notifications").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}

// UnreadCount counts a user's unread notifications
func (db *DB) UnreadCount(ctx context.Context, userID int64) (int, error) {
	query, args, err := db.builder.
		Select("COUNT(*)").
		From("notifications").
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// MarkNotificationRead flags one notification as read
func (db *DB) MarkNotificationRead(ctx context.Context, id int64) (*models.Notification, error) {
	err := db.exec(ctx, db.DB, db.builder.
		Update("notifications").
		Set("is_read", true).
		Set("updated_at", db.now()).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return db.GetNotification(ctx, id)
}

// MarkAllRead flags every unread notification of a user as read and
// returns how many changed
func (db *DB) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	query, args, err := db.builder.
		Update("notifications").
		Set("is_read", true).
		Set("updated_at", db.now()).
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteNotification deletes a notification
func (db *DB) DeleteNotification(ctx context.Context, id int64) error {
	return db.exec(ctx, db.DB, db.builder.
		Delete("notifications").
		Where(squirrel.Eq{"id": id}))
}
