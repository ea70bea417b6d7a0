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

// Conversation repository errors.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidConversation  = errors.New("invalid conversation")
)

// ConversationRepository handles conversation persistence.
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreate returns the conversation keyed by (subjectID, initiatorID),
// creating it if absent. The second return value reports whether a new
// row was created.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, subjectID, initiatorID, counterpartID string) (*models.Conversation, bool, error) {
	conv := &models.Conversation{
		SubjectID:     subjectID,
		InitiatorID:   initiatorID,
		CounterpartID: counterpartID,
	}
	if err := conv.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidConversation, err)
	}

	existing, err := r.getByKey(ctx, subjectID, initiatorID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	conv.ID = uuid.New().String()
	conv.LastMessageAt = now
	conv.CreatedAt = now

	_, err = r.db.ExecContext(ctx, r.db.rebind(`
		INSERT INTO conversations (id, subject_id, initiator_id, counterpart_id, last_message_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`),
		conv.ID,
		conv.SubjectID,
		conv.InitiatorID,
		conv.CounterpartID,
		conv.LastMessageAt.Format(time.RFC3339Nano),
		conv.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		// A concurrent create for the same key loses the race on the
		// unique constraint; resolve it by re-reading.
		if existing, getErr := r.getByKey(ctx, subjectID, initiatorID); getErr == nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert conversation: %w", err)
	}

	return conv, true, nil
}

// Get retrieves a conversation by ID.
func (r *ConversationRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`
		SELECT id, subject_id, initiator_id, counterpart_id, last_message_at, created_at
		FROM conversations WHERE id = ?
	`), id)

	return scanConversation(row)
}

// ListForPrincipal returns the principal's conversations with preview and
// unread count, most recent activity first.
func (r *ConversationRepository) ListForPrincipal(ctx context.Context, principalID string) ([]models.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(`
		SELECT
			c.id, c.subject_id, c.initiator_id, c.counterpart_id, c.last_message_at, c.created_at,
			COALESCE((
				SELECT m.content FROM messages m
				WHERE m.conversation_id = c.id
				ORDER BY m.created_at DESC, m.id DESC LIMIT 1
			), ''),
			(
				SELECT COUNT(*) FROM messages m
				WHERE m.conversation_id = c.id AND m.read = 0 AND m.sender_id <> ?
			)
		FROM conversations c
		WHERE c.initiator_id = ? OR c.counterpart_id = ?
		ORDER BY c.last_message_at DESC, c.id
	`), principalID, principalID, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var summaries []models.ConversationSummary
	for rows.Next() {
		var summary models.ConversationSummary
		var lastMessageAt, createdAt string

		if err := rows.Scan(
			&summary.ID,
			&summary.SubjectID,
			&summary.InitiatorID,
			&summary.CounterpartID,
			&lastMessageAt,
			&createdAt,
			&summary.Preview,
			&summary.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation summary: %w", err)
		}

		summary.LastMessageAt = parseTimestamp(lastMessageAt)
		summary.CreatedAt = parseTimestamp(createdAt)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return summaries, nil
}

// TouchLastMessageWithTx bumps last_message_at inside an existing
// transaction. Executed alongside the message insert so the two writes
// commit atomically.
func (r *ConversationRepository) TouchLastMessageWithTx(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	result, err := tx.ExecContext(ctx, r.db.rebind(`
		UPDATE conversations SET last_message_at = ? WHERE id = ?
	`), at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to update conversation activity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrConversationNotFound
	}

	return nil
}

func (r *ConversationRepository) getByKey(ctx context.Context, subjectID, initiatorID string) (*models.Conversation, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`
		SELECT id, subject_id, initiator_id, counterpart_id, last_message_at, created_at
		FROM conversations WHERE subject_id = ? AND initiator_id = ?
	`), subjectID, initiatorID)

	return scanConversation(row)
}

func scanConversation(row *sql.Row) (*models.Conversation, error) {
	var conv models.Conversation
	var lastMessageAt, createdAt string

	err := row.Scan(
		&conv.ID,
		&conv.SubjectID,
		&conv.InitiatorID,
		&conv.CounterpartID,
		&lastMessageAt,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	conv.LastMessageAt = parseTimestamp(lastMessageAt)
	conv.CreatedAt = parseTimestamp(createdAt)
	return &conv, nil
}

func parseTimestamp(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
