package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.yaml"))

	// Missing file yields an empty session.
	session, err := store.Load()
	require.NoError(t, err)
	require.True(t, session.IsEmpty())

	session.SignIn("alice", "Alice")
	session.SetConversation("conv-1")
	require.NoError(t, store.Save(session))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "alice", loaded.PrincipalID)
	require.Equal(t, "Alice", loaded.DisplayName)
	require.Equal(t, "conv-1", loaded.ConversationID)
	require.True(t, loaded.HasConversation())
}

func TestSessionSignInDropsSelection(t *testing.T) {
	session := &Session{}
	session.SignIn("alice", "Alice")
	session.SetConversation("conv-1")

	session.SignIn("bob", "Bob")
	require.Equal(t, "bob", session.PrincipalID)
	require.False(t, session.HasConversation())
}

func TestSessionClear(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.yaml"))

	session := &Session{}
	session.SignIn("alice", "Alice")
	require.NoError(t, store.Save(session))

	require.NoError(t, store.Clear())
	// Clearing twice is fine.
	require.NoError(t, store.Clear())

	loaded, err := store.Load()
	require.NoError(t, err)
	require.True(t, loaded.IsEmpty())
}

func TestSessionString(t *testing.T) {
	session := &Session{}
	require.Equal(t, "(signed out)", session.String())

	session.SignIn("principal-1234567890", "")
	require.Contains(t, session.String(), "principal:principa")
}
