package sessionstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"sdash-backend/lib/telemetry"
	"sdash-backend/lib/timezone"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fakeProbe struct {
	alive  bool
	called int
}

func (p *fakeProbe) ProbeSession(ctx context.Context) bool {
	p.called++
	return p.alive
}

func openTestStore(t *testing.T) Store {
	database, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		database.Close()
	})

	store, err := New(context.Background(), database)
	require.NoError(t, err)
	return store
}

func TestSaveAndReuse(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:sessionstore")
	defer cleanup()

	ctx := context.Background()
	store := openTestStore(t)

	probe := &fakeProbe{alive: true}

	require.False(t, store.IsValid(ctx, "ab1234", probe))
	require.Equal(t, 0, probe.called, "missing markers should not be probed")

	require.NoError(t, store.Save(ctx, "ab1234"))
	require.True(t, store.IsValid(ctx, "ab1234", probe))
	require.Equal(t, 1, probe.called)

	var status string
	require.NoError(t, store.db.QueryRowContext(
		ctx,
		`SELECT status FROM session_markers WHERE identity = ?`,
		"ab1234",
	).Scan(&status))
	require.Equal(t, "logged_in", status)

	// other identities never see each other's markers
	require.False(t, store.IsValid(ctx, "cd5678", probe))
}

func TestDeadProbeInvalidates(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:sessionstore")
	defer cleanup()

	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Save(ctx, "ab1234"))
	require.False(t, store.IsValid(ctx, "ab1234", &fakeProbe{alive: false}))
}

func TestExpiredMarker(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:sessionstore")
	defer cleanup()

	ctx := context.Background()
	store := openTestStore(t)

	old := timezone.Now().Add(-MaxAge - time.Hour).Unix()
	_, err := store.db.ExecContext(
		ctx,
		`INSERT INTO session_markers (identity, created_at, status) VALUES (?, ?, 'logged_in')`,
		"ab1234", old,
	)
	require.NoError(t, err)

	probe := &fakeProbe{alive: true}
	require.False(t, store.IsValid(ctx, "ab1234", probe))
	require.Equal(t, 0, probe.called, "expired markers should not be probed")
}

func TestDelete(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:sessionstore")
	defer cleanup()

	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Save(ctx, "ab1234"))
	require.NoError(t, store.Delete(ctx, "ab1234"))
	require.False(t, store.IsValid(ctx, "ab1234", nil))
}
