package localbackend

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/haggle-app/syncengine/internal/models"
	"github.com/haggle-app/syncengine/internal/push"
	"github.com/haggle-app/syncengine/internal/syncerr"
)

func openTestBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()

	db, err := Open(DBConfig{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)

	b := New(db, opts...)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// eventRecorder captures bus deliveries for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []push.Event
}

func (r *eventRecorder) handle(ev push.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) byTopic(topic push.Topic) []push.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []push.Event
	for _, ev := range r.events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}

func TestGetOrCreateConversationIdempotent(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	first, err := b.GetOrCreateConversation(ctx, "listing-1", "alice", "bob")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	again, err := b.GetOrCreateConversation(ctx, "listing-1", "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	other, err := b.GetOrCreateConversation(ctx, "listing-2", "alice", "bob")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestGetOrCreateConversationValidation(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	_, err := b.GetOrCreateConversation(ctx, "listing-1", "alice", "alice")
	require.True(t, syncerr.IsValidation(err))

	_, err = b.GetOrCreateConversation(ctx, "", "alice", "bob")
	require.True(t, syncerr.IsValidation(err))
}

func TestSendMessageAndList(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	conv, err := b.GetOrCreateConversation(ctx, "listing-1", "alice", "bob")
	require.NoError(t, err)

	first, err := b.SendMessage(ctx, conv.ID, "alice", "is this available?", "corr-1")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, "corr-1", first.CorrelationID)

	second, err := b.SendMessage(ctx, conv.ID, "bob", "yes it is", "")
	require.NoError(t, err)

	messages, err := b.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, first.ID, messages[0].ID)
	require.Equal(t, second.ID, messages[1].ID)
	require.Equal(t, "corr-1", messages[0].CorrelationID)
}

func TestSendMessageRejections(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	conv, err := b.GetOrCreateConversation(ctx, "listing-1", "alice", "bob")
	require.NoError(t, err)

	_, err = b.SendMessage(ctx, conv.ID, "mallory", "let me in", "")
	require.True(t, syncerr.IsValidation(err))

	_, err = b.SendMessage(ctx, "no-such-conversation", "alice", "hello", "")
	require.True(t, syncerr.IsNotFound(err))
}

func TestConversationSummariesAndUnread(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	conv, err := b.GetOrCreateConversation(ctx, "listing-1", "alice", "bob")
	require.NoError(t, err)

	_, err = b.SendMessage(ctx, conv.ID, "alice", "first", "")
	require.NoError(t, err)
	_, err = b.SendMessage(ctx, conv.ID, "alice", "second", "")
	require.NoError(t, err)

	// Bob sees two unread and the latest preview.
	bobView, err := b.ListConversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobView, 1)
	require.Equal(t, 2, bobView[0].UnreadCount)
	require.Equal(t, "second", bobView[0].Preview)

	// Own messages never count as unread.
	aliceView, err := b.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, aliceView[0].UnreadCount)

	require.NoError(t, b.MarkRead(ctx, conv.ID, "bob"))

	bobView, err = b.ListConversations(ctx, "bob")
	require.NoError(t, err)
	require.Zero(t, bobView[0].UnreadCount)
}

func TestConversationOrderByActivity(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	older, err := b.GetOrCreateConversation(ctx, "listing-1", "alice", "bob")
	require.NoError(t, err)
	newer, err := b.GetOrCreateConversation(ctx, "listing-2", "alice", "carol")
	require.NoError(t, err)

	_, err = b.SendMessage(ctx, older.ID, "alice", "first thread", "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = b.SendMessage(ctx, newer.ID, "alice", "second thread", "")
	require.NoError(t, err)

	list, err := b.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.ID, list[0].ID)
	require.Equal(t, older.ID, list[1].ID)
}

func TestSendMessagePublishesEvents(t *testing.T) {
	bus := push.NewBus(32)
	defer bus.Close()

	recorder := &eventRecorder{}
	_, err := bus.Subscribe("test-messages", push.TopicMessages, nil, recorder.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe("test-conversations", push.TopicConversations, nil, recorder.handle)
	require.NoError(t, err)

	b := openTestBackend(t, WithPublisher(bus))
	ctx := context.Background()

	conv, err := b.GetOrCreateConversation(ctx, "listing-1", "alice", "bob")
	require.NoError(t, err)

	msg, err := b.SendMessage(ctx, conv.ID, "alice", "hello", "corr-9")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(recorder.byTopic(push.TopicMessages)) == 1 &&
			len(recorder.byTopic(push.TopicConversations)) == 2
	}, time.Second, 5*time.Millisecond)

	msgEv := recorder.byTopic(push.TopicMessages)[0]
	require.Equal(t, push.ChangeInsert, msgEv.Change)
	require.Equal(t, msg.ID, msgEv.Message.ID)
	require.Equal(t, "corr-9", msgEv.Message.CorrelationID)

	convEvents := recorder.byTopic(push.TopicConversations)
	require.Equal(t, push.ChangeInsert, convEvents[0].Change)
	require.Equal(t, push.ChangeUpdate, convEvents[1].Change)
	require.Equal(t, conv.ID, convEvents[1].Conversation.ID)
	require.False(t, convEvents[1].Conversation.LastMessageAt.IsZero())
}

func TestMessageNotificationEmission(t *testing.T) {
	b := openTestBackend(t, WithMessageNotifications())
	ctx := context.Background()

	conv, err := b.GetOrCreateConversation(ctx, "listing-1", "alice", "bob")
	require.NoError(t, err)

	msg, err := b.SendMessage(ctx, conv.ID, "alice", "hello bob", "")
	require.NoError(t, err)

	notes, err := b.ListNotifications(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, models.NotificationNewMessage, notes[0].Type)
	require.Equal(t, "hello bob", notes[0].Body)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(notes[0].Payload, &payload))
	require.Equal(t, conv.ID, payload["conversation_id"])
	require.Equal(t, msg.ID, payload["message_id"])

	// The sender gets nothing.
	senderNotes, err := b.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, senderNotes)
}

func TestNotificationLifecycle(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	older := &models.Notification{
		PrincipalID: "alice",
		Type:        models.NotificationPriceDrop,
		Title:       "Price drop",
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, b.CreateNotification(ctx, older))

	newer := &models.Notification{
		PrincipalID: "alice",
		Type:        models.NotificationNewReview,
		Title:       "New review",
	}
	require.NoError(t, b.CreateNotification(ctx, newer))

	notes, err := b.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, newer.ID, notes[0].ID)

	count, err := b.UnreadNotificationCount(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, b.MarkNotificationRead(ctx, older.ID))
	count, err = b.UnreadNotificationCount(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.True(t, syncerr.IsNotFound(b.MarkNotificationRead(ctx, "no-such-id")))

	require.NoError(t, b.MarkAllNotificationsRead(ctx, "alice"))
	count, err = b.UnreadNotificationCount(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, b.DeleteNotification(ctx, newer.ID))
	require.True(t, syncerr.IsNotFound(b.DeleteNotification(ctx, newer.ID)))

	notes, err = b.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, notes, 1)
}

func TestCreateNotificationValidation(t *testing.T) {
	b := openTestBackend(t)

	err := b.CreateNotification(context.Background(), &models.Notification{
		PrincipalID: "alice",
		Type:        "mystery",
		Title:       "?",
	})
	require.True(t, syncerr.IsValidation(err))
}
