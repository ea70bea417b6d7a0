package localbackend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/haggle-app/syncengine/internal/logging"
	"github.com/haggle-app/syncengine/internal/models"
	"github.com/haggle-app/syncengine/internal/push"
	"github.com/haggle-app/syncengine/internal/syncerr"
)

// Backend implements the backend.Messaging and backend.Notifications
// collaborator interfaces over the local store, publishing the same
// change events a remote push gateway would deliver.
type Backend struct {
	db            *DB
	conversations *ConversationRepository
	messages      *MessageRepository
	notifications *NotificationRepository

	publisher push.Publisher
	logger    zerolog.Logger

	// notifyOnMessage makes the store emit a new_message notification to
	// the recipient on every insert, standing in for the collaborating
	// flows that produce notifications in production.
	notifyOnMessage bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithPublisher attaches the push channel events are published to.
func WithPublisher(p push.Publisher) Option {
	return func(b *Backend) {
		b.publisher = p
	}
}

// WithMessageNotifications enables new_message notification emission.
func WithMessageNotifications() Option {
	return func(b *Backend) {
		b.notifyOnMessage = true
	}
}

// New creates a Backend over db.
func New(db *DB, opts ...Option) *Backend {
	b := &Backend{
		db:            db,
		conversations: NewConversationRepository(db),
		messages:      NewMessageRepository(db),
		notifications: NewNotificationRepository(db),
		logger:        logging.Component("localbackend"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close closes the underlying store.
func (b *Backend) Close() error {
	return b.db.Close()
}

// GetOrCreateConversation implements backend.Messaging.
func (b *Backend) GetOrCreateConversation(ctx context.Context, subjectID, initiatorID, counterpartID string) (*models.Conversation, error) {
	conv, created, err := b.conversations.GetOrCreate(ctx, subjectID, initiatorID, counterpartID)
	if err != nil {
		if errors.Is(err, ErrInvalidConversation) {
			return nil, fmt.Errorf("get or create conversation: %w: %w", syncerr.ErrValidation, err)
		}
		return nil, syncerr.Network("get or create conversation", err)
	}

	if created {
		b.publish(push.Event{
			Topic:        push.TopicConversations,
			Change:       push.ChangeInsert,
			Conversation: conv,
		})
	}

	return conv, nil
}

// ListConversations implements backend.Messaging.
func (b *Backend) ListConversations(ctx context.Context, principalID string) ([]models.ConversationSummary, error) {
	summaries, err := b.conversations.ListForPrincipal(ctx, principalID)
	if err != nil {
		return nil, syncerr.Network("list conversations", err)
	}
	return summaries, nil
}

// ListMessages implements backend.Messaging.
func (b *Backend) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	messages, err := b.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, syncerr.Network("list messages", err)
	}
	return messages, nil
}

// SendMessage implements backend.Messaging. The message insert and the
// conversation activity bump commit atomically; the corresponding
// message-insert and conversation-update events are published after the
// commit succeeds.
func (b *Backend) SendMessage(ctx context.Context, conversationID, senderID, content, correlationID string) (*models.Message, error) {
	conv, err := b.conversations.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil, syncerr.NotFound("send message", "conversation")
		}
		return nil, syncerr.Network("send message", err)
	}
	if !conv.Participant(senderID) {
		return nil, syncerr.Validation("send message", "sender is not a participant")
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CorrelationID:  correlationID,
	}

	err = b.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		if err := b.messages.CreateWithTx(ctx, tx, msg); err != nil {
			return err
		}
		return b.conversations.TouchLastMessageWithTx(ctx, tx, conversationID, msg.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidMessage) {
			return nil, fmt.Errorf("send message: %w: %w", syncerr.ErrValidation, err)
		}
		return nil, syncerr.Network("send message", err)
	}

	conv.LastMessageAt = msg.CreatedAt

	b.publish(push.Event{
		Topic:   push.TopicMessages,
		Change:  push.ChangeInsert,
		Message: msg,
	})
	b.publish(push.Event{
		Topic:        push.TopicConversations,
		Change:       push.ChangeUpdate,
		Conversation: conv,
	})

	if b.notifyOnMessage {
		b.emitMessageNotification(ctx, conv, msg)
	}

	return msg, nil
}

// MarkRead implements backend.Messaging.
func (b *Backend) MarkRead(ctx context.Context, conversationID, principalID string) error {
	if _, err := b.messages.MarkConversationRead(ctx, conversationID, principalID); err != nil {
		return syncerr.Network("mark conversation read", err)
	}
	return nil
}

// ListNotifications implements backend.Notifications.
func (b *Backend) ListNotifications(ctx context.Context, principalID string) ([]models.Notification, error) {
	notes, err := b.notifications.ListForPrincipal(ctx, principalID)
	if err != nil {
		return nil, syncerr.Network("list notifications", err)
	}
	return notes, nil
}

// UnreadNotificationCount implements backend.Notifications.
func (b *Backend) UnreadNotificationCount(ctx context.Context, principalID string) (int, error) {
	count, err := b.notifications.CountUnread(ctx, principalID)
	if err != nil {
		return 0, syncerr.Network("count unread notifications", err)
	}
	return count, nil
}

// MarkNotificationRead implements backend.Notifications.
func (b *Backend) MarkNotificationRead(ctx context.Context, id string) error {
	if err := b.notifications.MarkRead(ctx, id); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return syncerr.NotFound("mark notification read", "notification")
		}
		return syncerr.Network("mark notification read", err)
	}
	return nil
}

// MarkAllNotificationsRead implements backend.Notifications.
func (b *Backend) MarkAllNotificationsRead(ctx context.Context, principalID string) error {
	if err := b.notifications.MarkAllRead(ctx, principalID); err != nil {
		return syncerr.Network("mark all notifications read", err)
	}
	return nil
}

// DeleteNotification implements backend.Notifications.
func (b *Backend) DeleteNotification(ctx context.Context, id string) error {
	if err := b.notifications.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return syncerr.NotFound("delete notification", "notification")
		}
		return syncerr.Network("delete notification", err)
	}
	return nil
}

// CreateNotification inserts a notification and publishes its insert
// event. Exposed for the collaborating flows (and the demo) that produce
// notifications.
func (b *Backend) CreateNotification(ctx context.Context, note *models.Notification) error {
	if err := b.notifications.Create(ctx, note); err != nil {
		if errors.Is(err, ErrInvalidNotification) {
			return fmt.Errorf("create notification: %w: %w", syncerr.ErrValidation, err)
		}
		return syncerr.Network("create notification", err)
	}

	b.publish(push.Event{
		Topic:        push.TopicNotifications,
		Change:       push.ChangeInsert,
		Notification: note,
	})

	return nil
}

func (b *Backend) emitMessageNotification(ctx context.Context, conv *models.Conversation, msg *models.Message) {
	recipient := conv.Other(msg.SenderID)
	if recipient == "" {
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"conversation_id": conv.ID,
		"message_id":      msg.ID,
		"subject_id":      conv.SubjectID,
	})

	note := &models.Notification{
		PrincipalID: recipient,
		Type:        models.NotificationNewMessage,
		Title:       "New message",
		Body:        msg.Content,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}

	if err := b.CreateNotification(ctx, note); err != nil {
		b.logger.Warn().Err(err).
			Str("conversation_id", conv.ID).
			Msg("failed to emit message notification")
	}
}

func (b *Backend) publish(ev push.Event) {
	if b.publisher == nil {
		return
	}
	b.publisher.Publish(ev)
}
