// Package backend declares the remote-store collaborator interfaces the
// sync engine depends on. The authoritative schema, query engine, session
// issuance and image storage live behind these interfaces; the engine only
// assumes the operation contracts below.
package backend

import (
	"context"

	"github.com/haggle-app/syncengine/internal/models"
)

// Messaging is the conversation/message surface of the remote store.
type Messaging interface {
	// GetOrCreateConversation returns the conversation keyed by
	// (subjectID, initiatorID), creating it if absent. Idempotent.
	GetOrCreateConversation(ctx context.Context, subjectID, initiatorID, counterpartID string) (*models.Conversation, error)

	// ListConversations returns the principal's conversations with
	// embedded preview and unread count, most-recent-activity first.
	ListConversations(ctx context.Context, principalID string) ([]models.ConversationSummary, error)

	// ListMessages returns a conversation's messages ascending by
	// creation time.
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)

	// SendMessage inserts a message. correlationID is client-generated
	// and echoed back verbatim in the confirmation event.
	SendMessage(ctx context.Context, conversationID, senderID, content, correlationID string) (*models.Message, error)

	// MarkRead flags all unread, not-self-authored messages of the
	// conversation as read for the principal.
	MarkRead(ctx context.Context, conversationID, principalID string) error
}

// Notifications is the notification surface of the remote store.
type Notifications interface {
	// ListNotifications returns the principal's notifications newest-first.
	ListNotifications(ctx context.Context, principalID string) ([]models.Notification, error)

	// UnreadNotificationCount returns the persisted unread count. Queried
	// once at session start to seed the unread aggregate.
	UnreadNotificationCount(ctx context.Context, principalID string) (int, error)

	// MarkNotificationRead flags one notification as read.
	MarkNotificationRead(ctx context.Context, id string) error

	// MarkAllNotificationsRead flags all of the principal's notifications
	// as read.
	MarkAllNotificationsRead(ctx context.Context, principalID string) error

	// DeleteNotification removes one notification.
	DeleteNotification(ctx context.Context, id string) error
}

// Uploader is the image storage collaborator. The engine's only contract
// with it: an outgoing message whose content starts with
// models.ImagePrefix carries the resolved URL after the prefix.
type Uploader interface {
	// Upload stores the local asset and returns its public URL.
	Upload(ctx context.Context, localAssetRef, bucket string) (string, error)
}
