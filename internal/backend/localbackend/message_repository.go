package localbackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haggle-app/syncengine/internal/models"
)

// Message repository errors.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidMessage  = errors.New("invalid message")
)

// MessageRepository handles message persistence.
type MessageRepository struct {
	db *DB
}

type messageExecer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message, assigning ID and CreatedAt when unset.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	return r.createWithExecutor(ctx, r.db, msg)
}

// CreateWithTx inserts a message using an existing transaction.
func (r *MessageRepository) CreateWithTx(ctx context.Context, tx *sql.Tx, msg *models.Message) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return r.createWithExecutor(ctx, tx, msg)
}

func (r *MessageRepository) createWithExecutor(ctx context.Context, execer messageExecer, msg *models.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	} else {
		msg.CreatedAt = msg.CreatedAt.UTC()
	}

	read := 0
	if msg.Read {
		read = 1
	}

	_, err := execer.ExecContext(ctx, r.db.rebind(`
		INSERT INTO messages (id, conversation_id, sender_id, content, correlation_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`),
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Content,
		msg.CorrelationID,
		read,
		msg.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// ListByConversation returns a conversation's messages ascending by
// creation time.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(`
		SELECT id, conversation_id, sender_id, content, correlation_id, read, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at, id
	`), conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var read int
		var createdAt string

		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Content,
			&msg.CorrelationID,
			&read,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Read = read != 0
		msg.CreatedAt = parseTimestamp(createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// MarkConversationRead flags all unread messages of the conversation not
// authored by principalID as read. Returns the number of rows updated.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, conversationID, principalID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.rebind(`
		UPDATE messages SET read = 1
		WHERE conversation_id = ? AND sender_id <> ? AND read = 0
	`), conversationID, principalID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get updated count: %w", err)
	}
	return count, nil
}
