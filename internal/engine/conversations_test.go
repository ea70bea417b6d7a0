package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haggle-app/syncengine/internal/models"
)

func TestConversationStoreRefresh(t *testing.T) {
	messaging := newFakeMessaging()
	messaging.setConversations(
		models.ConversationSummary{
			Conversation: models.Conversation{ID: "c1", InitiatorID: testPrincipal, CounterpartID: testPeer},
			Preview:      "hello",
			UnreadCount:  2,
		},
	)

	store := NewConversationStore(messaging, testPrincipal)
	require.False(t, store.Loaded())
	require.Empty(t, store.Conversations())

	require.NoError(t, store.Refresh(context.Background()))
	require.True(t, store.Loaded())

	list := store.Conversations()
	require.Len(t, list, 1)
	require.Equal(t, "c1", list[0].ID)
	require.Equal(t, 2, store.UnreadSum())
}

func TestConversationStoreRetainsListOnFailure(t *testing.T) {
	messaging := newFakeMessaging()
	messaging.setConversations(models.ConversationSummary{
		Conversation: models.Conversation{ID: "c1"},
	})

	store := NewConversationStore(messaging, testPrincipal)
	require.NoError(t, store.Refresh(context.Background()))

	messaging.setListConvErr(networkErr())
	require.Error(t, store.Refresh(context.Background()))
	require.Len(t, store.Conversations(), 1)

	// Silent variant swallows the error too.
	store.SilentRefresh(context.Background())
	require.Len(t, store.Conversations(), 1)
}
