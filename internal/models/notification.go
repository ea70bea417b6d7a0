package models

import (
	"encoding/json"
	"time"
)

// NotificationType tags a notification with the flow that produced it.
// The set is closed; unknown tags are rejected by Validate.
type NotificationType string

const (
	NotificationNewMessage    NotificationType = "new_message"
	NotificationNewReview     NotificationType = "new_review"
	NotificationReviewReply   NotificationType = "review_reply"
	NotificationReaction      NotificationType = "reaction"
	NotificationNewSubscriber NotificationType = "new_subscriber"
	NotificationPriceDrop     NotificationType = "price_drop"
	NotificationBroadcast     NotificationType = "broadcast"
)

// notificationTypes is the closed set of valid type tags.
var notificationTypes = map[NotificationType]struct{}{
	NotificationNewMessage:    {},
	NotificationNewReview:     {},
	NotificationReviewReply:   {},
	NotificationReaction:      {},
	NotificationNewSubscriber: {},
	NotificationPriceDrop:     {},
	NotificationBroadcast:     {},
}

// ValidNotificationType reports whether t belongs to the closed type set.
func ValidNotificationType(t NotificationType) bool {
	_, ok := notificationTypes[t]
	return ok
}

// Notification is a per-principal notification record. Created by
// collaborating flows outside the sync engine; consumed here for
// read-state mutation and count aggregation.
type Notification struct {
	// ID is the backend-assigned identifier.
	ID string `json:"id"`

	// PrincipalID is the target principal.
	PrincipalID string `json:"principal_id"`

	// Type is the tag from the closed type set.
	Type NotificationType `json:"type"`

	// Title is the short display title.
	Title string `json:"title"`

	// Body is the display body.
	Body string `json:"body"`

	// Payload carries structured references to the entity the
	// notification concerns (conversation id, review id, listing id...).
	Payload json.RawMessage `json:"payload,omitempty"`

	// Read reports whether the principal has read the notification.
	Read bool `json:"read"`

	// CreatedAt is the backend creation timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// UnreadCounts is the process-wide unread aggregate: two non-negative
// counters summarizing unread messages and unread notifications.
type UnreadCounts struct {
	Messages      int `json:"messages"`
	Notifications int `json:"notifications"`
}

// Total returns the combined unread count.
func (u UnreadCounts) Total() int {
	return u.Messages + u.Notifications
}
