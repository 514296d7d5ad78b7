package database

import (
	"fmt"
)

// notificationRepository handles database operations for notifications
type notificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateNotification inserts a notification record
func (r *notificationRepository) CreateNotification(ntype, title, body, level string) error {
	_, err := r.db.Exec(`
		INSERT INTO notifications (type, title, body, level)
		VALUES ($1, $2, $3, $4)
	`, ntype, title, body, level)

	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetNotifications returns recent notifications, optionally unread only
func (r *notificationRepository) GetNotifications(unreadOnly bool, limit int) ([]Notification, error) {
	rows, err := r.db.Query(`
		SELECT id, type, title, body, level, read, created_at
		FROM notifications
		WHERE ($1 = false OR read = false)
		ORDER BY created_at DESC
		LIMIT $2
	`, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.Level, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return notifications, nil
}

// MarkNotificationRead marks one notification as read
func (r *notificationRepository) MarkNotificationRead(id string) error {
	_, err := r.db.Exec(`UPDATE notifications SET read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks every notification as read
func (r *notificationRepository) MarkAllNotificationsRead() error {
	_, err := r.db.Exec(`UPDATE notifications SET read = true WHERE read = false`)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
