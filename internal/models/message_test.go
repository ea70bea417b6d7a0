package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageImageHelpers(t *testing.T) {
	text := Message{Content: "just text"}
	require.False(t, text.IsImage())
	require.Empty(t, text.ImageURL())

	image := Message{Content: ImagePrefix + "https://cdn.example.com/a.jpg"}
	require.True(t, image.IsImage())
	require.Equal(t, "https://cdn.example.com/a.jpg", image.ImageURL())

	// A URL mentioning the marker mid-string is still plain text.
	tricky := Message{Content: "look: " + ImagePrefix + "x"}
	require.False(t, tricky.IsImage())
}

func TestConversationParticipants(t *testing.T) {
	conv := Conversation{InitiatorID: "alice", CounterpartID: "bob"}

	require.True(t, conv.Participant("alice"))
	require.True(t, conv.Participant("bob"))
	require.False(t, conv.Participant("carol"))
	require.False(t, conv.Participant(""))

	require.Equal(t, "bob", conv.Other("alice"))
	require.Equal(t, "alice", conv.Other("bob"))
	require.Empty(t, conv.Other("carol"))
}

func TestSummaryImagePreview(t *testing.T) {
	plain := ConversationSummary{Preview: "hello"}
	require.False(t, plain.IsImagePreview())

	image := ConversationSummary{Preview: ImagePrefix + "https://cdn.example.com/a.jpg"}
	require.True(t, image.IsImagePreview())
}

func TestTimelineEntryConfirmed(t *testing.T) {
	pending := TimelineEntry{Status: StatusPending}
	failed := TimelineEntry{Status: StatusFailed}
	confirmed := TimelineEntry{Status: StatusConfirmed}

	require.False(t, pending.Confirmed())
	require.False(t, failed.Confirmed())
	require.True(t, confirmed.Confirmed())
}
