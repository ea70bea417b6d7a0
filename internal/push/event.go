// Package push routes backend change events to in-process subscribers.
//
// Topics are collection-level; subscribers narrow delivery with row
// predicates. Delivery is at-most-once per topic per change, in arrival
// order within a topic. No ordering is guaranteed across topics.
package push

import "github.com/haggle-app/syncengine/internal/models"

// Topic identifies an event stream on the backend push channel.
type Topic string

const (
	// TopicMessages carries message-insert events.
	TopicMessages Topic = "messages"

	// TopicConversations carries conversation insert/update events.
	TopicConversations Topic = "conversations"

	// TopicNotifications carries notification-insert events.
	TopicNotifications Topic = "notifications"
)

// ChangeType distinguishes inserts from updates within a topic.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
)

// Event is one change delivered on the push channel. Exactly one of the
// record pointers is set, matching the topic.
type Event struct {
	Topic  Topic
	Change ChangeType

	Message      *models.Message
	Conversation *models.Conversation
	Notification *models.Notification
}

// FilterFunc narrows delivery to events the subscriber cares about.
// A nil filter matches everything.
type FilterFunc func(Event) bool

// Handler is the callback invoked for each matching event.
type Handler func(Event)

// Publisher is the producer side of the push channel. The local backend
// and the websocket feed both publish through it.
type Publisher interface {
	Publish(Event)
}

// MessageInConversation filters message events to one conversation.
func MessageInConversation(conversationID string) FilterFunc {
	return func(ev Event) bool {
		return ev.Message != nil && ev.Message.ConversationID == conversationID
	}
}

// MessageNotFrom filters message events to those not authored by
// principalID.
func MessageNotFrom(principalID string) FilterFunc {
	return func(ev Event) bool {
		return ev.Message != nil && ev.Message.SenderID != principalID
	}
}

// ConversationInitiatedBy filters conversation events where principalID
// is the initiator.
func ConversationInitiatedBy(principalID string) FilterFunc {
	return func(ev Event) bool {
		return ev.Conversation != nil && ev.Conversation.InitiatorID == principalID
	}
}

// ConversationCounterpartOf filters conversation events where principalID
// is the counterpart.
func ConversationCounterpartOf(principalID string) FilterFunc {
	return func(ev Event) bool {
		return ev.Conversation != nil && ev.Conversation.CounterpartID == principalID
	}
}

// NotificationFor filters notification events targeting principalID.
func NotificationFor(principalID string) FilterFunc {
	return func(ev Event) bool {
		return ev.Notification != nil && ev.Notification.PrincipalID == principalID
	}
}

// Any matches events passing at least one of the given filters. Used to
// merge the initiator and counterpart conversation subscriptions.
func Any(filters ...FilterFunc) FilterFunc {
	return func(ev Event) bool {
		for _, f := range filters {
			if f == nil || f(ev) {
				return true
			}
		}
		return false
	}
}
