package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/mlaurent/avidex/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE discovery_cache (
  entity_key TEXT PRIMARY KEY,
  data TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  synced INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE sync_queue (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  entity_key TEXT NOT NULL,
  data TEXT NOT NULL,
  timestamp TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending'
);
CREATE INDEX idx_sync_queue_status ON sync_queue (status);
`)
	require.NoError(t, err)

	return db
}

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	return NewSQLiteStore(setupDB(t))
}

func testDiscovery(note string) models.Discovery {
	return models.Discovery{
		Description: "seen near the lake",
		Photos: []models.Observation{
			{
				Date:      "2025-06-01",
				Location:  "old harbour",
				PhotoData: "aGVsbG8=",
				Sex:       models.SexFemale,
				Note:      note,
			},
		},
	}
}

func TestUpsertCacheEntries_InsertAndOverwrite(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCacheEntries(ctx, map[string]models.Discovery{
		"007": testDiscovery("first"),
		"012": testDiscovery("other"),
	}))

	entries, err := s.ReadAllCacheEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries["007"].Synced)
	assert.Equal(t, "first", entries["007"].Record.Photos[0].Note)
	assert.Equal(t, "007", entries["007"].Record.EntityKey)

	// Overwrite keeps a single row per key; last write wins.
	require.NoError(t, s.UpsertCacheEntries(ctx, map[string]models.Discovery{
		"007": testDiscovery("second"),
	}))

	entries, err = s.ReadAllCacheEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries["007"].Record.Photos[0].Note)
}

func TestEnqueueMutation_TagsCacheUnsynced(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnqueueMutation(ctx, "007", testDiscovery("offline")))

	pending, err := s.ReadPendingMutations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "007", pending[0].EntityKey)
	assert.Equal(t, models.QueueStatusPending, pending[0].Status)
	assert.Equal(t, "offline", pending[0].Record.Photos[0].Note)

	entries, err := s.ReadAllCacheEntries(ctx)
	require.NoError(t, err)
	require.Contains(t, entries, "007")
	assert.False(t, entries["007"].Synced)
}

func TestReadPendingMutations_OldestFirst(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, key := range []string{"001", "002", "001"} {
		i := i
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, s.EnqueueMutation(ctx, key, testDiscovery(key)))
	}

	pending, err := s.ReadPendingMutations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{"001", "002", "001"}, []string{
		pending[0].EntityKey, pending[1].EntityKey, pending[2].EntityKey,
	})
	assert.True(t, pending[0].Timestamp.Before(pending[2].Timestamp))
	assert.Less(t, pending[0].ID, pending[1].ID)
}

func TestMarkMutationSynced(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnqueueMutation(ctx, "007", testDiscovery("x")))
	pending, err := s.ReadPendingMutations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.MarkMutationSynced(ctx, pending[0].ID, "007"))

	pending, err = s.ReadPendingMutations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	entries, err := s.ReadAllCacheEntries(ctx)
	require.NoError(t, err)
	assert.True(t, entries["007"].Synced)
}

func TestMarkMutationSynced_MissingCacheRowIsNoop(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnqueueMutation(ctx, "007", testDiscovery("x")))
	pending, err := s.ReadPendingMutations(ctx)
	require.NoError(t, err)

	_, err = s.db.Exec(`DELETE FROM discovery_cache WHERE entity_key='007'`)
	require.NoError(t, err)

	// The queue row still goes away; the absent cache row is not an error.
	require.NoError(t, s.MarkMutationSynced(ctx, pending[0].ID, "007"))

	n, err := s.CountPendingMutations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkMutationSynced_AlreadyDeletedRowIsNoop(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnqueueMutation(ctx, "007", testDiscovery("x")))
	pending, err := s.ReadPendingMutations(ctx)
	require.NoError(t, err)

	// A concurrent reconciliation pass in the other execution context may
	// have deleted this row already.
	require.NoError(t, s.MarkMutationSynced(ctx, pending[0].ID, "007"))
	require.NoError(t, s.MarkMutationSynced(ctx, pending[0].ID, "007"))
}

func TestCountPendingMutations(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	n, err := s.CountPendingMutations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.EnqueueMutation(ctx, "001", testDiscovery("a")))
	require.NoError(t, s.EnqueueMutation(ctx, "002", testDiscovery("b")))

	n, err = s.CountPendingMutations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClearAll(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnqueueMutation(ctx, "001", testDiscovery("a")))
	require.NoError(t, s.UpsertCacheEntries(ctx, map[string]models.Discovery{"002": testDiscovery("b")}))

	require.NoError(t, s.ClearAll(ctx))

	entries, err := s.ReadAllCacheEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	n, err := s.CountPendingMutations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_RunsMigrations(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "avidex.db")

	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.EnqueueMutation(ctx, "007", testDiscovery("migrated")))

	n, err := s.CountPendingMutations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
