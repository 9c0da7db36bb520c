package contentcache

import (
	"context"
	"testing"
	"time"

	"sdash-backend/lib/telemetry"
	"sdash-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) Cache {
	cache, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		cache.Close()
	})
	return cache
}

func TestSetAndGet(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:contentcache")
	defer cleanup()

	ctx := context.Background()
	cache := openTestCache(t)

	_, err := cache.Get(ctx, "ab1234", "calendar")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, cache.Set(ctx, "ab1234", "calendar", []byte(`[{"date":"01/07/2025"}]`), 1))

	entry, err := cache.Get(ctx, "ab1234", "calendar")
	require.NoError(t, err)
	require.Equal(t, []byte(`[{"date":"01/07/2025"}]`), entry.Payload)
	require.Equal(t, 1, entry.Count)
}

func TestEntriesAreScopedPerIdentity(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:contentcache")
	defer cleanup()

	ctx := context.Background()
	cache := openTestCache(t)

	require.NoError(t, cache.Set(ctx, "ab1234", "calendar", []byte("a"), 1))

	_, err := cache.Get(ctx, "cd5678", "calendar")
	require.ErrorIs(t, err, ErrNotFound)

	// area scoping too
	_, err = cache.Get(ctx, "ab1234", "timetable")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExpiryAndStaleFallback(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:contentcache")
	defer cleanup()

	ctx := context.Background()
	cache := openTestCache(t)

	fresh := Entry{
		Payload:   []byte("fresh"),
		WrittenAt: timezone.Now().Add(-5 * time.Hour).Unix(),
		Count:     3,
	}
	require.NoError(t, cache.SetEntry(ctx, "ab1234", "calendar", fresh))

	entry, err := cache.Get(ctx, "ab1234", "calendar")
	require.NoError(t, err)
	require.Equal(t, []byte("fresh"), entry.Payload)

	stale := Entry{
		Payload:   []byte("stale"),
		WrittenAt: timezone.Now().Add(-7 * time.Hour).Unix(),
		Count:     3,
	}
	require.NoError(t, cache.SetEntry(ctx, "ab1234", "calendar", stale))

	_, err = cache.Get(ctx, "ab1234", "calendar")
	require.ErrorIs(t, err, ErrExpired)

	// the expired entry must survive for the stale fallback path
	entry, err = cache.GetStale(ctx, "ab1234", "calendar")
	require.NoError(t, err)
	require.Equal(t, []byte("stale"), entry.Payload)
	require.Equal(t, 3, entry.Count)
}
