package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haggle-app/syncengine/internal/models"
)

func summaries(unreads ...int) []models.ConversationSummary {
	out := make([]models.ConversationSummary, len(unreads))
	for i, n := range unreads {
		out[i].UnreadCount = n
	}
	return out
}

func TestSeedPopulatesBothCounters(t *testing.T) {
	messaging := newFakeMessaging()
	messaging.setConversations(summaries(2, 0, 3)...)
	notifications := &fakeNotifications{unreadCount: 4}

	agg := NewUnreadAggregator(messaging, notifications, testPrincipal)
	require.False(t, agg.Seeded())

	require.NoError(t, agg.Seed(context.Background()))
	require.True(t, agg.Seeded())
	require.Equal(t, models.UnreadCounts{Messages: 5, Notifications: 4}, agg.Counts())
	require.Equal(t, 9, agg.Counts().Total())
}

func TestSeedFailurePropagates(t *testing.T) {
	messaging := newFakeMessaging()
	notifications := &fakeNotifications{countErr: networkErr()}

	agg := NewUnreadAggregator(messaging, notifications, testPrincipal)
	require.Error(t, agg.Seed(context.Background()))
	require.False(t, agg.Seeded())
}

func TestRecomputeReplacesMessageCount(t *testing.T) {
	messaging := newFakeMessaging()
	messaging.setConversations(summaries(1)...)
	notifications := &fakeNotifications{}

	agg := NewUnreadAggregator(messaging, notifications, testPrincipal)
	require.NoError(t, agg.Seed(context.Background()))
	require.Equal(t, 1, agg.Counts().Messages)

	messaging.setConversations(summaries(1, 6)...)
	agg.Recompute(context.Background())
	require.Equal(t, 7, agg.Counts().Messages)
}

func TestRecomputeFailureRetainsPreviousCount(t *testing.T) {
	messaging := newFakeMessaging()
	messaging.setConversations(summaries(3)...)
	notifications := &fakeNotifications{}

	agg := NewUnreadAggregator(messaging, notifications, testPrincipal)
	require.NoError(t, agg.Seed(context.Background()))

	messaging.setListConvErr(networkErr())
	agg.Recompute(context.Background())
	require.Equal(t, 3, agg.Counts().Messages)
}

func TestNotificationCounterLifecycle(t *testing.T) {
	messaging := newFakeMessaging()
	notifications := &fakeNotifications{unreadCount: 1}

	agg := NewUnreadAggregator(messaging, notifications, testPrincipal)
	require.NoError(t, agg.Seed(context.Background()))

	agg.IncrementNotifications()
	agg.IncrementNotifications()
	require.Equal(t, 3, agg.Counts().Notifications)

	agg.DecrementNotifications()
	require.Equal(t, 2, agg.Counts().Notifications)

	require.NoError(t, agg.ResetNotifications(context.Background()))
	require.Zero(t, agg.Counts().Notifications)
	require.Equal(t, 1, notifications.markAllCount())

	// Floors at zero.
	agg.DecrementNotifications()
	require.Zero(t, agg.Counts().Notifications)
}

func TestResetNotificationsIsOptimistic(t *testing.T) {
	messaging := newFakeMessaging()
	notifications := &fakeNotifications{unreadCount: 5, markAllErr: networkErr()}

	agg := NewUnreadAggregator(messaging, notifications, testPrincipal)
	require.NoError(t, agg.Seed(context.Background()))

	// The round trip fails, but the counter stays at zero: the user acted,
	// the display follows the action.
	require.Error(t, agg.ResetNotifications(context.Background()))
	require.Zero(t, agg.Counts().Notifications)
}
