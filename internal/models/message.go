package models

import (
	"strings"
	"time"
)

// ImagePrefix is the reserved content prefix marking a message as an
// image reference. The remainder of the content after the prefix is the
// resolved public URL (or the local asset ref while an upload is pending).
const ImagePrefix = "::image::"

// Message is a confirmed conversation message. Immutable once confirmed
// except for the read flag.
type Message struct {
	// ID is the backend-assigned identifier, set once confirmed.
	ID string `json:"id"`

	// ConversationID references the owning conversation.
	ConversationID string `json:"conversation_id"`

	// SenderID is the authoring participant.
	SenderID string `json:"sender_id"`

	// Content is the text content, or an image reference (see ImagePrefix).
	Content string `json:"content"`

	// CorrelationID is the client-generated id submitted with the send
	// request and echoed back verbatim in the confirmation event. Empty for
	// messages originated by other clients that did not supply one.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Read reports whether the recipient has read the message.
	Read bool `json:"read"`

	// CreatedAt is the backend creation timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// IsImage reports whether the message content is an image reference.
func (m *Message) IsImage() bool {
	return strings.HasPrefix(m.Content, ImagePrefix)
}

// ImageURL returns the image URL for an image message, or "" otherwise.
func (m *Message) ImageURL() string {
	if !m.IsImage() {
		return ""
	}
	return strings.TrimPrefix(m.Content, ImagePrefix)
}

// LocalStatus is the ephemeral lifecycle state of a timeline entry.
type LocalStatus string

const (
	// StatusPending marks a locally-created message awaiting confirmation.
	StatusPending LocalStatus = "pending"

	// StatusConfirmed marks a message acknowledged by the backend. Terminal.
	StatusConfirmed LocalStatus = "confirmed"

	// StatusFailed marks a send that was rejected. Not terminal: a retry
	// transitions the entry back to pending.
	StatusFailed LocalStatus = "failed"
)

// TimelineEntry is one row of a conversation timeline: either a confirmed
// message or a local placeholder awaiting its authoritative counterpart.
type TimelineEntry struct {
	// LocalID is the client-generated correlation id. It is local
	// bookkeeping for placeholders and doubles as the correlation id
	// transmitted with the send request.
	LocalID string `json:"local_id"`

	// Message holds the entry content. For placeholders Message.ID is empty
	// until the entry is superseded by its confirmed record.
	Message Message `json:"message"`

	// Status is the entry lifecycle state.
	Status LocalStatus `json:"status"`
}

// Confirmed reports whether the entry carries a backend-confirmed message.
func (e *TimelineEntry) Confirmed() bool {
	return e.Status == StatusConfirmed
}
