package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-dev/gatehouse/internal/database/testutil"
)

func newTestMemoryStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()

	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.clock = func() time.Time { return current }
	t.Cleanup(store.Close)

	return store, &current
}

func TestMemoryStoreIncrementWithTTL(t *testing.T) {
	store, current := newTestMemoryStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "hits", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	*current = current.Add(30 * time.Second)

	count, ttl, err = store.IncrementWithTTL(ctx, "hits", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 30*time.Second, ttl, "the window is not extended by later hits")

	// Past the window the counter starts over.
	*current = current.Add(31 * time.Second)

	count, _, err = store.IncrementWithTTL(ctx, "hits", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestMemoryStoreSetGetDelete(t *testing.T) {
	store, current := newTestMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "marker", []byte("ready"), time.Minute))

	value, ok, err := store.Get(ctx, "marker")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("ready"), value)

	*current = current.Add(2 * time.Minute)

	_, ok, err = store.Get(ctx, "marker")
	require.NoError(t, err)
	require.False(t, ok, "a lapsed entry reads as absent")

	require.NoError(t, store.Set(ctx, "keep", []byte("forever"), 0))
	*current = current.Add(24 * time.Hour)

	_, ok, err = store.Get(ctx, "keep")
	require.NoError(t, err)
	require.True(t, ok, "entries without ttl never lapse")

	require.NoError(t, store.Delete(ctx, "keep"))
	_, ok, err = store.Get(ctx, "keep")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStorePurgeExpired(t *testing.T) {
	store, current := newTestMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "gone", []byte("x"), time.Second))
	require.NoError(t, store.Set(ctx, "kept", []byte("y"), time.Hour))

	*current = current.Add(time.Minute)
	store.purgeExpired()

	store.mu.Lock()
	_, gone := store.entries["gone"]
	_, kept := store.entries["kept"]
	store.mu.Unlock()

	require.False(t, gone)
	require.True(t, kept)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "hits", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = store.IncrementWithTTL(ctx, "hits", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, _, err = store.IncrementWithTTL(ctx, "other", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "keys count independently")
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "marker", []byte("ready"), time.Hour))

	value, ok, err := store.Get(ctx, "marker")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("ready"), value)

	require.NoError(t, store.Set(ctx, "marker", []byte("updated"), time.Hour))
	value, ok, err = store.Get(ctx, "marker")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("updated"), value)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Delete(ctx, "marker"))
	_, ok, err = store.Get(ctx, "marker")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreGetExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", []byte("x"), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	require.False(t, ok, "a lapsed entry reads as absent")
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", []byte("x"), time.Nanosecond))
	require.NoError(t, store.Set(ctx, "fresh", []byte("y"), time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []byte("z"), 0))
	time.Sleep(5 * time.Millisecond)

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = store.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, ok, "entries without expiry are never purged")
}
