package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haggle-app/syncengine/internal/models"
	"github.com/haggle-app/syncengine/internal/push"
	"github.com/haggle-app/syncengine/internal/syncerr"
)

// fakeMessaging is a scriptable in-memory backend.Messaging. When echo is
// set, every accepted send publishes its message-insert event, simulating
// the gateway echoing the write back on the push channel.
type fakeMessaging struct {
	mu sync.Mutex

	conversations []models.ConversationSummary
	messages      map[string][]models.Message

	echo *push.Bus

	sendErr     error
	listConvErr error
	listMsgErr  error
	markReadErr error

	sendCalls     int
	sentContents  []string
	markReadCalls []string
}

func newFakeMessaging() *fakeMessaging {
	return &fakeMessaging{messages: make(map[string][]models.Message)}
}

func (f *fakeMessaging) setConversations(summaries ...models.ConversationSummary) {
	f.mu.Lock()
	f.conversations = summaries
	f.mu.Unlock()
}

func (f *fakeMessaging) setSendErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *fakeMessaging) setListConvErr(err error) {
	f.mu.Lock()
	f.listConvErr = err
	f.mu.Unlock()
}

func (f *fakeMessaging) markReadConversations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.markReadCalls))
	copy(out, f.markReadCalls)
	return out
}

func (f *fakeMessaging) GetOrCreateConversation(ctx context.Context, subjectID, initiatorID, counterpartID string) (*models.Conversation, error) {
	return &models.Conversation{
		ID:            "conv-" + subjectID,
		SubjectID:     subjectID,
		InitiatorID:   initiatorID,
		CounterpartID: counterpartID,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (f *fakeMessaging) ListConversations(ctx context.Context, principalID string) ([]models.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listConvErr != nil {
		return nil, f.listConvErr
	}
	out := make([]models.ConversationSummary, len(f.conversations))
	copy(out, f.conversations)
	return out, nil
}

func (f *fakeMessaging) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listMsgErr != nil {
		return nil, f.listMsgErr
	}
	out := make([]models.Message, len(f.messages[conversationID]))
	copy(out, f.messages[conversationID])
	return out, nil
}

func (f *fakeMessaging) SendMessage(ctx context.Context, conversationID, senderID, content, correlationID string) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.sendCalls++
	if f.sendErr != nil {
		err := f.sendErr
		f.mu.Unlock()
		return nil, err
	}

	msg := models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CorrelationID:  correlationID,
		CreatedAt:      time.Now().UTC(),
	}
	f.messages[conversationID] = append(f.messages[conversationID], msg)
	f.sentContents = append(f.sentContents, content)
	echo := f.echo
	f.mu.Unlock()

	if echo != nil {
		echo.Publish(push.Event{
			Topic:   push.TopicMessages,
			Change:  push.ChangeInsert,
			Message: &msg,
		})
	}

	return &msg, nil
}

func (f *fakeMessaging) MarkRead(ctx context.Context, conversationID, principalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.markReadCalls = append(f.markReadCalls, conversationID)
	return nil
}

// fakeNotifications is a scriptable in-memory backend.Notifications.
type fakeNotifications struct {
	mu sync.Mutex

	notes       []models.Notification
	unreadCount int

	countErr   error
	markAllErr error

	markAllCalls int
	markedRead   []string
	deleted      []string
}

func (f *fakeNotifications) markAllCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markAllCalls
}

func (f *fakeNotifications) ListNotifications(ctx context.Context, principalID string) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Notification, len(f.notes))
	copy(out, f.notes)
	return out, nil
}

func (f *fakeNotifications) UnreadNotificationCount(ctx context.Context, principalID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.unreadCount, nil
}

func (f *fakeNotifications) MarkNotificationRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedRead = append(f.markedRead, id)
	return nil
}

func (f *fakeNotifications) MarkAllNotificationsRead(ctx context.Context, principalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markAllCalls++
	return f.markAllErr
}

func (f *fakeNotifications) DeleteNotification(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeUploader is a scriptable backend.Uploader.
type fakeUploader struct {
	mu sync.Mutex

	uploadErr error
	calls     int
}

func (f *fakeUploader) setErr(err error) {
	f.mu.Lock()
	f.uploadErr = err
	f.mu.Unlock()
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeUploader) Upload(ctx context.Context, localAssetRef, bucket string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://cdn.example.com/" + bucket + "/" + localAssetRef, nil
}

func networkErr() error {
	return syncerr.Network("send message", context.DeadlineExceeded)
}
