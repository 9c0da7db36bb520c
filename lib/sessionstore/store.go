package sessionstore

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"sdash-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sdash.lib.sessionstore")

// markers only say "a chrome profile for this identity logged in at
// time X". the profile itself lives on disk under the browser's
// profile root, so a marker without its profile is just a miss.
const schema = `
CREATE TABLE IF NOT EXISTS session_markers (
	identity TEXT NOT NULL PRIMARY KEY,
	created_at INTEGER NOT NULL,
	status TEXT NOT NULL
);
`

// MaxAge is how long a marker is trusted before the identity must
// log in again, probe or no probe. the portal's own cookies last
// roughly this long.
const MaxAge = time.Hour * 24 * 30

// Prober checks that a stored session actually still works, since
// the portal can invalidate cookies long before MaxAge.
type Prober interface {
	ProbeSession(ctx context.Context) bool
}

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, database *sql.DB) (Store, error) {
	_, err := database.ExecContext(ctx, schema)
	if err != nil {
		return Store{}, err
	}
	return Store{db: database}, nil
}

// Save records that `identity` completed a fresh login just now.
func (s Store) Save(ctx context.Context, identity string) error {
	ctx, span := tracer.Start(ctx, "Save")
	defer span.End()
	span.SetAttributes(attribute.String("identity", identity))

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO session_markers (identity, created_at, status)
		VALUES (?, ?, 'logged_in')
		ON CONFLICT (identity) DO UPDATE SET created_at = excluded.created_at, status = 'logged_in'`,
		identity,
		timezone.Now().Unix(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upsert session marker")
		return err
	}
	return nil
}

// Delete drops the marker for `identity`. Used when a probe or page
// fetch shows the portal has thrown the session away.
func (s Store) Delete(ctx context.Context, identity string) error {
	ctx, span := tracer.Start(ctx, "Delete")
	defer span.End()

	_, err := s.db.ExecContext(ctx, `DELETE FROM session_markers WHERE identity = ?`, identity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete session marker")
		return err
	}
	return nil
}

// IsValid reports whether a stored session for `identity` can be
// reused without a password. any failure along the way (missing
// marker, storage error, stale marker, dead probe) degrades to
// false, never to an error, because the caller's fallback is always
// the same: log in again.
func (s Store) IsValid(ctx context.Context, identity string, probe Prober) bool {
	ctx, span := tracer.Start(ctx, "IsValid")
	defer span.End()
	span.SetAttributes(attribute.String("identity", identity))

	var createdAt int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT created_at FROM session_markers WHERE identity = ?`,
		identity,
	).Scan(&createdAt)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query session marker")
		slog.WarnContext(ctx, "session marker lookup failed", "identity", identity, "err", err)
		return false
	}

	age := timezone.Now().Sub(time.Unix(createdAt, 0))
	if age > MaxAge {
		slog.InfoContext(ctx, "session marker too old", "identity", identity, "age", age)
		return false
	}

	if probe != nil && !probe.ProbeSession(ctx) {
		slog.InfoContext(ctx, "stored session failed liveness probe", "identity", identity)
		return false
	}

	return true
}
