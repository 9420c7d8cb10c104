// Package sqlite provides the on-device local cache backend backed by SQLite.
//
// The cache holds each collection as one JSON document per owner slot.
// The guest slot is a single-slot resource shared by all guest-mode
// sessions on the device: migration drains it (read once, clear once)
// when the user signs in. Signed-in owners get their own slot, used to
// carry unsynced changes across process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
	"github.com/tomp11/sb-stamp-manager/pkg/storage"
)

// cacheKey is the fixed storage key the guest collection lives under.
// It matches the key the original web client used in browser storage, so
// the two caches stay conceptually interchangeable.
const cacheKey = "my_store_passports"

// rowKey scopes a cache slot to its owner. The guest slot keeps the bare
// web-client key; signed-in owners each get their own slot so the two
// identity contexts never see each other's records.
func rowKey(ownerID string) string {
	if ownerID == "" || ownerID == stamp.AnonymousOwner {
		return cacheKey
	}
	return cacheKey + ":" + ownerID
}

const schema = `
CREATE TABLE IF NOT EXISTS passport_cache (
	key        TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// Cache implements storage.Backend on a local SQLite file.
type Cache struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCache opens (or creates) the cache database at dbPath.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewCache(dbPath string, logger *zap.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite-specific pragmas
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Cache{db: db, logger: logger}, nil
}

// Load reads the cached collection. A missing row means an empty
// collection; a corrupt document also degrades to an empty collection
// rather than surfacing a parse error, because an available-but-empty
// passport beats an error screen.
func (c *Cache) Load(ctx context.Context, ownerID string) ([]stamp.Record, error) {
	var doc string
	err := c.db.QueryRowContext(ctx,
		"SELECT doc FROM passport_cache WHERE key = ?", rowKey(ownerID),
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return []stamp.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var records []stamp.Record
	if err := json.Unmarshal([]byte(doc), &records); err != nil {
		c.logger.Warn("local cache is corrupt, starting from an empty collection",
			zap.Error(err),
		)
		return []stamp.Record{}, nil
	}

	for i := range records {
		records[i].Sanitize()
	}

	return records, nil
}

// Save replaces the cached collection with the given records. Writes are
// synchronous: when the store is anonymous the cache is the only backend,
// so there is nothing to defer behind.
func (c *Cache) Save(ctx context.Context, records []stamp.Record, ownerID string) error {
	if records == nil {
		records = []stamp.Record{}
	}

	doc, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO passport_cache (key, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		rowKey(ownerID), string(doc), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}

	return nil
}

// Delete removes a single record from the cached collection.
func (c *Cache) Delete(ctx context.Context, ownerID, id string) error {
	records, err := c.Load(ctx, ownerID)
	if err != nil {
		return err
	}

	kept := records[:0]
	found := false
	for _, rec := range records {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return storage.ErrNotFound{ID: id}
	}

	return c.Save(ctx, kept, ownerID)
}

// Clear drops the owner's cached collection entirely.
func (c *Cache) Clear(ctx context.Context, ownerID string) error {
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM passport_cache WHERE key = ?", rowKey(ownerID),
	)
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

var _ storage.Backend = (*Cache)(nil)
