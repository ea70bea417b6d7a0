package localbackend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haggle-app/syncengine/internal/testutil"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(DBConfig{Driver: "oracle", DSN: "whatever"})
	require.Error(t, err)
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	db, err := Open(DBConfig{DSN: filepath.Join(t.TempDir(), "default.db")})
	require.NoError(t, err)
	defer db.Close()

	require.Equal(t, DriverSQLite, db.Driver())
}

func TestRebind(t *testing.T) {
	sqlite := &DB{driver: DriverSQLite}
	postgres := &DB{driver: DriverPostgres}

	query := "SELECT id FROM messages WHERE conversation_id = ? AND sender_id <> ?"

	require.Equal(t, query, sqlite.rebind(query))
	require.Equal(t,
		"SELECT id FROM messages WHERE conversation_id = $1 AND sender_id <> $2",
		postgres.rebind(query))
}

// Postgres coverage is opt-in via SYNCENGINE_TEST_POSTGRES_DSN; the
// sqlite store carries the default run.
func TestPostgresStore(t *testing.T) {
	dsn := testutil.PostgresDSN(t)

	db, err := Open(DBConfig{Driver: DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	defer db.Close()

	b := New(db)
	ctx := context.Background()

	conv, err := b.GetOrCreateConversation(ctx, "pg-listing", "alice", "bob")
	require.NoError(t, err)

	msg, err := b.SendMessage(ctx, conv.ID, "alice", "hello from postgres", "pg-corr")
	require.NoError(t, err)

	messages, err := b.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.NotEmpty(t, messages)
	require.Equal(t, msg.ID, messages[len(messages)-1].ID)
}
