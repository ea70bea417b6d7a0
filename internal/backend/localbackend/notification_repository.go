package localbackend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haggle-app/syncengine/internal/models"
)

// Notification repository errors.
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidNotification  = errors.New("invalid notification")
)

// NotificationRepository handles notification persistence.
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification, assigning ID and CreatedAt when unset.
func (r *NotificationRepository) Create(ctx context.Context, note *models.Notification) error {
	if err := note.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNotification, err)
	}

	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	} else {
		note.CreatedAt = note.CreatedAt.UTC()
	}

	var payloadJSON *string
	if len(note.Payload) > 0 {
		s := string(note.Payload)
		payloadJSON = &s
	}

	read := 0
	if note.Read {
		read = 1
	}

	_, err := r.db.ExecContext(ctx, r.db.rebind(`
		INSERT INTO notifications (id, principal_id, type, title, body, payload_json, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		note.ID,
		note.PrincipalID,
		string(note.Type),
		note.Title,
		note.Body,
		payloadJSON,
		read,
		note.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

// ListForPrincipal returns the principal's notifications newest-first.
func (r *NotificationRepository) ListForPrincipal(ctx context.Context, principalID string) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(`
		SELECT id, principal_id, type, title, body, payload_json, read, created_at
		FROM notifications
		WHERE principal_id = ?
		ORDER BY created_at DESC, id
	`), principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notes []models.Notification
	for rows.Next() {
		var note models.Notification
		var noteType string
		var payloadJSON sql.NullString
		var read int
		var createdAt string

		if err := rows.Scan(
			&note.ID,
			&note.PrincipalID,
			&noteType,
			&note.Title,
			&note.Body,
			&payloadJSON,
			&read,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		note.Type = models.NotificationType(noteType)
		note.Read = read != 0
		note.CreatedAt = parseTimestamp(createdAt)
		if payloadJSON.Valid {
			note.Payload = json.RawMessage(payloadJSON.String)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notes, nil
}

// CountUnread returns the principal's persisted unread notification count.
func (r *NotificationRepository) CountUnread(ctx context.Context, principalID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.db.rebind(`
		SELECT COUNT(*) FROM notifications WHERE principal_id = ? AND read = 0
	`), principalID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags one notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.rebind(`
		UPDATE notifications SET read = 1 WHERE id = ?
	`), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated count: %w", err)
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flags all of the principal's notifications as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, principalID string) error {
	_, err := r.db.ExecContext(ctx, r.db.rebind(`
		UPDATE notifications SET read = 1 WHERE principal_id = ? AND read = 0
	`), principalID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// Delete removes one notification.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.rebind(`
		DELETE FROM notifications WHERE id = ?
	`), id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deleted count: %w", err)
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
