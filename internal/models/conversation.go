// Package models defines the domain types shared across the sync engine.
package models

import (
	"strings"
	"time"
)

// Conversation is a durable thread between two participants about one
// subject (a marketplace listing). Created once via an idempotent
// get-or-create keyed by (subject, initiator) and never deleted; only the
// backend mutates it, bumping LastMessageAt on message inserts.
type Conversation struct {
	// ID is the backend-assigned identifier.
	ID string `json:"id"`

	// SubjectID references the listing the conversation is about.
	SubjectID string `json:"subject_id"`

	// InitiatorID is the participant who opened the conversation.
	InitiatorID string `json:"initiator_id"`

	// CounterpartID is the other participant.
	CounterpartID string `json:"counterpart_id"`

	// LastMessageAt is the timestamp of the most recent message.
	LastMessageAt time.Time `json:"last_message_at"`

	// CreatedAt is when the conversation was created.
	CreatedAt time.Time `json:"created_at"`
}

// Participant reports whether principalID is one of the two participants.
func (c *Conversation) Participant(principalID string) bool {
	return principalID != "" &&
		(c.InitiatorID == principalID || c.CounterpartID == principalID)
}

// Other returns the participant opposite to principalID, or "" if
// principalID is not a participant.
func (c *Conversation) Other(principalID string) string {
	switch principalID {
	case c.InitiatorID:
		return c.CounterpartID
	case c.CounterpartID:
		return c.InitiatorID
	default:
		return ""
	}
}

// ConversationSummary is the denormalized list-row shape served by the
// backend: the conversation plus a preview of the latest message and the
// unread count for the requesting principal.
type ConversationSummary struct {
	Conversation

	// Preview is the content of the most recent message, if any.
	Preview string `json:"preview,omitempty"`

	// UnreadCount is the number of unread, not-self-authored messages.
	UnreadCount int `json:"unread_count"`
}

// IsImagePreview reports whether the preview is an image message, so list
// views can show a placeholder instead of the raw URL.
func (s *ConversationSummary) IsImagePreview() bool {
	return strings.HasPrefix(s.Preview, ImagePrefix)
}
