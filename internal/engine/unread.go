package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/haggle-app/syncengine/internal/backend"
	"github.com/haggle-app/syncengine/internal/logging"
	"github.com/haggle-app/syncengine/internal/models"
)

// UnreadAggregator owns the process-wide unread aggregate. The two
// counters follow different policies on purpose: messages are recomputed
// by full recount (sum over the conversation list), notifications are
// incremented per insert event and only ever decremented by explicit user
// action, never by a background recompute.
//
// State is mutated only through the named operations below; reads go
// through Counts. A recompute that fails retains the previous value:
// background drift is preferred over a false "no unread" signal.
type UnreadAggregator struct {
	messaging     backend.Messaging
	notifications backend.Notifications
	principalID   string
	logger        zerolog.Logger

	mu     sync.Mutex
	counts models.UnreadCounts
	seeded bool
}

// NewUnreadAggregator creates an aggregator for the principal. Counters
// start at zero until Seed runs.
func NewUnreadAggregator(messaging backend.Messaging, notifications backend.Notifications, principalID string) *UnreadAggregator {
	return &UnreadAggregator{
		messaging:     messaging,
		notifications: notifications,
		principalID:   principalID,
		logger:        logging.Component("unread-aggregator"),
	}
}

// Seed populates both counters with an eager synchronous fetch. It must
// complete before subscriptions attach so no counting gap opens between
// the snapshot and the event stream.
func (a *UnreadAggregator) Seed(ctx context.Context) error {
	noteCount, err := a.notifications.UnreadNotificationCount(ctx, a.principalID)
	if err != nil {
		return err
	}

	msgCount, err := a.countMessages(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.counts = models.UnreadCounts{Messages: msgCount, Notifications: noteCount}
	a.seeded = true
	a.mu.Unlock()

	return nil
}

// Recompute replaces the message counter with a full recount. Safe to
// invoke concurrently with itself: each completion writes a full
// replacement, so the later completion wins and no merge is needed. On
// failure the previous value is retained and the failure logged only.
func (a *UnreadAggregator) Recompute(ctx context.Context) {
	count, err := a.countMessages(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("unread recompute failed, retaining previous count")
		return
	}

	a.mu.Lock()
	a.counts.Messages = count
	a.mu.Unlock()
}

// IncrementNotifications adds one to the notification counter, invoked
// per inbound notification-insert event.
func (a *UnreadAggregator) IncrementNotifications() {
	a.mu.Lock()
	a.counts.Notifications++
	a.mu.Unlock()
}

// DecrementNotifications subtracts one from the notification counter,
// invoked when the user marks a single notification read. Floors at zero.
func (a *UnreadAggregator) DecrementNotifications() {
	a.mu.Lock()
	if a.counts.Notifications > 0 {
		a.counts.Notifications--
	}
	a.mu.Unlock()
}

// ResetNotifications zeroes the notification counter immediately, then
// asks the backend to mark everything read. The reset is optimistic: the
// counter stays at zero regardless of the round-trip outcome, and any
// backend error is returned for the caller's affordance only.
func (a *UnreadAggregator) ResetNotifications(ctx context.Context) error {
	a.mu.Lock()
	a.counts.Notifications = 0
	a.mu.Unlock()

	return a.notifications.MarkAllNotificationsRead(ctx, a.principalID)
}

// Counts returns the current aggregate.
func (a *UnreadAggregator) Counts() models.UnreadCounts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts
}

// Seeded reports whether the session-start fetch has completed.
func (a *UnreadAggregator) Seeded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seeded
}

// countMessages sums unread-per-conversation across the entire list.
func (a *UnreadAggregator) countMessages(ctx context.Context) (int, error) {
	summaries, err := a.messaging.ListConversations(ctx, a.principalID)
	if err != nil {
		return 0, err
	}

	sum := 0
	for _, conv := range summaries {
		sum += conv.UnreadCount
	}
	return sum, nil
}
