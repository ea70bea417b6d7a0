package engine

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/haggle-app/syncengine/internal/backend"
	"github.com/haggle-app/syncengine/internal/logging"
	"github.com/haggle-app/syncengine/internal/models"
	"github.com/haggle-app/syncengine/internal/push"
	"github.com/haggle-app/syncengine/internal/syncerr"
)

// Config tunes the engine's send behavior. The zero value keeps the
// unbounded-retry, no-backoff defaults.
type Config struct {
	Timeline TimelineConfig
}

// Engine is the session-scoped synchronization facade for one signed-in
// principal. It owns the conversation store and the unread aggregate,
// attaches the standing push subscriptions, and opens per-conversation
// timelines on demand.
type Engine struct {
	cfg           Config
	messaging     backend.Messaging
	notifications backend.Notifications
	uploader      backend.Uploader
	bus           *push.Bus
	principalID   string
	logger        zerolog.Logger

	conversations *ConversationStore
	unread        *UnreadAggregator

	ctx          context.Context
	cancel       context.CancelFunc
	unsubscribes []func()
}

// New creates an engine for the signed-in principal. An empty principal
// is an authentication error: nothing in the engine works unauthenticated.
func New(cfg Config, messaging backend.Messaging, notifications backend.Notifications, uploader backend.Uploader, bus *push.Bus, principalID string) (*Engine, error) {
	if strings.TrimSpace(principalID) == "" {
		return nil, syncerr.Auth("create engine")
	}

	return &Engine{
		cfg:           cfg,
		messaging:     messaging,
		notifications: notifications,
		uploader:      uploader,
		bus:           bus,
		principalID:   principalID,
		logger:        logging.WithPrincipal(principalID),
		conversations: NewConversationStore(messaging, principalID),
		unread:        NewUnreadAggregator(messaging, notifications, principalID),
	}, nil
}

// PrincipalID returns the signed-in principal.
func (e *Engine) PrincipalID() string {
	return e.principalID
}

// Conversations returns the engine's conversation store.
func (e *Engine) Conversations() *ConversationStore {
	return e.conversations
}

// Unread returns the engine's unread aggregate.
func (e *Engine) Unread() *UnreadAggregator {
	return e.unread
}

// Start seeds the unread counters, loads the conversation list and
// attaches the standing subscriptions. Seeding completes before any
// subscription attaches so the snapshot and the event stream cannot open
// a counting gap between them.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	if err := e.unread.Seed(e.ctx); err != nil {
		return err
	}
	if err := e.conversations.Refresh(e.ctx); err != nil {
		return err
	}

	// The conversation list reacts to any conversation the principal is
	// on either side of: silent full refetch plus a message recount.
	unsubConvs, err := e.bus.Subscribe(
		"engine:conversations",
		push.TopicConversations,
		push.Any(
			push.ConversationInitiatedBy(e.principalID),
			push.ConversationCounterpartOf(e.principalID),
		),
		func(push.Event) {
			e.conversations.SilentRefresh(e.ctx)
			e.unread.Recompute(e.ctx)
		},
	)
	if err != nil {
		return err
	}
	e.unsubscribes = append(e.unsubscribes, unsubConvs)

	// Messages from anyone else bump the unread message count.
	unsubMsgs, err := e.bus.Subscribe(
		"engine:messages",
		push.TopicMessages,
		push.MessageNotFrom(e.principalID),
		func(ev push.Event) {
			if ev.Change != push.ChangeInsert {
				return
			}
			e.unread.Recompute(e.ctx)
		},
	)
	if err != nil {
		return err
	}
	e.unsubscribes = append(e.unsubscribes, unsubMsgs)

	unsubNotes, err := e.bus.Subscribe(
		"engine:notifications",
		push.TopicNotifications,
		push.NotificationFor(e.principalID),
		func(ev push.Event) {
			if ev.Change != push.ChangeInsert {
				return
			}
			e.unread.IncrementNotifications()
		},
	)
	if err != nil {
		return err
	}
	e.unsubscribes = append(e.unsubscribes, unsubNotes)

	e.logger.Info().Msg("engine started")
	return nil
}

// Close detaches the standing subscriptions and cancels session-scoped
// work. Open timelines are closed by their owning views.
func (e *Engine) Close() {
	if e.cancel != nil {
		e.cancel()
	}
	for _, unsubscribe := range e.unsubscribes {
		unsubscribe()
	}
	e.unsubscribes = nil
	e.logger.Info().Msg("engine closed")
}

// OpenTimeline opens the conversation's timeline view.
func (e *Engine) OpenTimeline(conversationID string) (*Timeline, error) {
	if e.ctx == nil {
		return nil, syncerr.Validation("open timeline", "engine not started")
	}
	return OpenTimeline(e.ctx, e.cfg.Timeline, e.messaging, e.uploader, e.bus, e.principalID, conversationID)
}

// GetOrCreateConversation resolves the conversation between the principal
// and the counterpart about the subject, creating it on first contact.
// Messaging oneself is rejected.
func (e *Engine) GetOrCreateConversation(ctx context.Context, subjectID, counterpartID string) (*models.Conversation, error) {
	if counterpartID == e.principalID {
		return nil, syncerr.Validation("get or create conversation", "counterpart is the signed-in principal")
	}
	return e.messaging.GetOrCreateConversation(ctx, subjectID, e.principalID, counterpartID)
}

// FocusMessages is the foreground fallback for the messages surface:
// refetch the conversation list and recount, covering any push events
// missed while backgrounded.
func (e *Engine) FocusMessages(ctx context.Context) {
	e.conversations.SilentRefresh(ctx)
	e.unread.Recompute(ctx)
}

// ListNotifications returns the principal's notifications newest-first.
func (e *Engine) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	return e.notifications.ListNotifications(ctx, e.principalID)
}

// MarkNotificationRead marks one notification read and decrements the
// counter on success.
func (e *Engine) MarkNotificationRead(ctx context.Context, id string) error {
	if err := e.notifications.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	e.unread.DecrementNotifications()
	return nil
}

// MarkAllNotificationsRead optimistically zeroes the notification counter
// and marks everything read on the backend.
func (e *Engine) MarkAllNotificationsRead(ctx context.Context) error {
	return e.unread.ResetNotifications(ctx)
}

// DeleteNotification removes one notification.
func (e *Engine) DeleteNotification(ctx context.Context, id string) error {
	return e.notifications.DeleteNotification(ctx, id)
}
