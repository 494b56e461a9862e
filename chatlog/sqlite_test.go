package chatlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.ChatLogStore = (*SQLiteStore)(nil)
	_ core.ChatLogStore = (*InMemoryStore)(nil)
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLite(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestSQLite_AppendAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	rows := []core.ChatLogEntry{
		{UserID: "u1", SessionID: "s1", Role: core.ChatRoleUser, Content: "plan my week", CreatedAt: base},
		{UserID: "u1", SessionID: "s1", Role: core.ChatRoleAssistant, Content: "here is the plan", CreatedAt: base.Add(time.Second)},
		{UserID: "u1", SessionID: "s1", Role: core.ChatRoleSystem, Content: "MEAL_PLAN_SAVED: weekly", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, row := range rows {
		require.NoError(t, store.Append(ctx, row))
	}

	entries, err := store.Recent(ctx, "u1", "s1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Oldest first.
	assert.Equal(t, "plan my week", entries[0].Content)
	assert.Equal(t, core.ChatRoleSystem, entries[2].Role)
}

func TestSQLite_RecentHonorsLimitKeepingNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, content := range []string{"first", "second", "third"} {
		require.NoError(t, store.Append(ctx, core.ChatLogEntry{
			UserID: "u1", SessionID: "s1", Role: core.ChatRoleUser,
			Content: content, CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := store.Recent(ctx, "u1", "s1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Content)
	assert.Equal(t, "third", entries[1].Content)
}

func TestSQLite_MetadataRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, core.ChatLogEntry{
		UserID: "u1", SessionID: "s1", Role: core.ChatRoleSystem,
		Content:  "MEAL_PLAN_SAVED: weekly",
		Metadata: map[string]any{"monday": "lentil curry"},
	}))

	entries, err := store.Recent(ctx, "u1", "s1", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "lentil curry", entries[0].Metadata["monday"])
}

func TestSQLite_RejectsUnknownRole(t *testing.T) {
	store := newTestStore(t)

	err := store.Append(context.Background(), core.ChatLogEntry{
		UserID: "u1", SessionID: "s1", Role: "robot", Content: "beep",
	})
	require.Error(t, err)

	var perr *core.PersistenceError
	assert.ErrorAs(t, err, &perr)
}

func TestSQLite_SessionsAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, core.ChatLogEntry{
		UserID: "u1", SessionID: "s1", Role: core.ChatRoleUser, Content: "hello",
	}))

	entries, err := store.Recent(ctx, "u1", "s2", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = store.Recent(ctx, "u2", "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInMemory_MatchesSQLiteSemantics(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, store.Append(ctx, core.ChatLogEntry{
			UserID: "u1", SessionID: "s1", Role: core.ChatRoleUser, Content: content,
		}))
	}

	entries, err := store.Recent(ctx, "u1", "s1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Content)
	assert.Equal(t, "third", entries[1].Content)
}
