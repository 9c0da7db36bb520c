package contentcache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"sdash-backend/lib/timezone"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("sdash.lib.contentcache")

var ErrNotFound = badger.ErrKeyNotFound

// ErrExpired means an entry exists but is older than TTL. The entry
// stays in the cache so GetStale can still serve it when a fresh
// scrape fails.
var ErrExpired = fmt.Errorf("cache entry expired")

// TTL is how long scraped content is served without rescraping. The
// portal updates at most a few times a day.
const TTL = time.Hour * 6

type Entry struct {
	// Payload is the marshaled report as it will be returned to the
	// caller.
	Payload   []byte
	WrittenAt int64
	// Count carries the entry count of the cached report so cached
	// responses can report it without unmarshaling the payload.
	Count int
}

func (e Entry) Age() time.Duration {
	return time.Duration(timezone.Now().Unix()-e.WrittenAt) * time.Second
}

// Cache stores scraped content per (identity, content area) pair.
// Different students see different pages, so entries are never
// shared across identities.
type Cache struct {
	db *badger.DB
}

func New(db *badger.DB) Cache {
	return Cache{db: db}
}

func Open(dir string) (Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return Cache{}, err
	}
	return Cache{db: db}, nil
}

func (c Cache) Close() error {
	return c.db.Close()
}

func key(identity, area string) []byte {
	return []byte(identity + ":" + area)
}

// Get returns a fresh entry, ErrExpired for a stale one, or
// ErrNotFound.
func (c Cache) Get(ctx context.Context, identity, area string) (Entry, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("identity", identity),
		attribute.String("area", area),
	)

	entry, err := c.read(key(identity, area))
	if err == badger.ErrKeyNotFound {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cache entry")
		return Entry{}, err
	}

	if entry.Age() >= TTL {
		span.AddEvent("cache entry expired, retained for stale fallback")
		return Entry{}, ErrExpired
	}

	return entry, nil
}

// GetStale returns whatever entry exists regardless of age. Used as
// a fallback after a failed scrape, stale content beats none.
func (c Cache) GetStale(ctx context.Context, identity, area string) (Entry, error) {
	ctx, span := tracer.Start(ctx, "GetStale")
	defer span.End()
	span.SetAttributes(
		attribute.String("identity", identity),
		attribute.String("area", area),
	)

	entry, err := c.read(key(identity, area))
	if err == badger.ErrKeyNotFound {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cache entry")
		return Entry{}, err
	}
	return entry, nil
}

func (c Cache) Set(ctx context.Context, identity, area string, payload []byte, count int) error {
	return c.SetEntry(ctx, identity, area, Entry{
		Payload:   payload,
		WrittenAt: timezone.Now().Unix(),
		Count:     count,
	})
}

// SetEntry writes an entry exactly as given, write time included.
// Set is the normal path; this one exists for restoring entries that
// already carry their own timestamp.
func (c Cache) SetEntry(ctx context.Context, identity, area string, entry Entry) error {
	ctx, span := tracer.Start(ctx, "SetEntry")
	defer span.End()
	span.SetAttributes(
		attribute.String("identity", identity),
		attribute.String("area", area),
		attribute.Int("payload_size", len(entry.Payload)),
	)

	err := c.write(key(identity, area), entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write cache entry")
		return err
	}
	return nil
}

func (c Cache) read(key []byte) (Entry, error) {
	tx := c.db.NewTransaction(false)
	defer tx.Discard()

	item, err := tx.Get(key)
	if err != nil {
		return Entry{}, err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		return Entry{}, err
	}

	var entry Entry
	err = gob.NewDecoder(bytes.NewBuffer(serialized)).Decode(&entry)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (c Cache) write(key []byte, entry Entry) error {
	serialized := bytes.NewBuffer(nil)
	err := gob.NewEncoder(serialized).Encode(entry)
	if err != nil {
		return err
	}

	tx := c.db.NewTransaction(true)
	defer tx.Commit()

	return tx.Set(key, serialized.Bytes())
}
