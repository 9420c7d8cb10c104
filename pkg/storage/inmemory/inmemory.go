// Package inmemory provides a map-backed implementation of storage.Backend.
//
// It backs tests and the zero-config development story: `stamps serve`
// without a configured cache path keeps the collection in process memory.
package inmemory

import (
	"context"
	"sync"

	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
	"github.com/tomp11/sb-stamp-manager/pkg/storage"
)

// Backend implements storage.Backend using in-memory maps keyed by owner.
type Backend struct {
	mu sync.RWMutex

	// collections maps owner id -> that owner's records.
	collections map[string][]stamp.Record
}

// NewBackend creates a new in-memory backend.
func NewBackend() *Backend {
	return &Backend{
		collections: make(map[string][]stamp.Record),
	}
}

// Load returns a copy of the owner's records.
func (b *Backend) Load(_ context.Context, ownerID string) ([]stamp.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	records := b.collections[ownerID]
	out := make([]stamp.Record, len(records))
	copy(out, records)

	return out, nil
}

// Save replaces the owner's records with a copy of the given slice.
func (b *Backend) Save(_ context.Context, records []stamp.Record, ownerID string) error {
	for _, rec := range records {
		if rec.ID == "" {
			return storage.ErrMissingID{StoreName: rec.StoreName}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	stored := make([]stamp.Record, len(records))
	copy(stored, records)
	b.collections[ownerID] = stored

	return nil
}

// Delete removes a single record by id.
func (b *Backend) Delete(_ context.Context, ownerID, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := b.collections[ownerID]
	for i, rec := range records {
		if rec.ID == id {
			b.collections[ownerID] = append(records[:i:i], records[i+1:]...)
			return nil
		}
	}

	return storage.ErrNotFound{ID: id}
}

// Clear drops the owner's collection.
func (b *Backend) Clear(_ context.Context, ownerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.collections, ownerID)

	return nil
}

// Close is a no-op for the in-memory backend.
func (b *Backend) Close() error {
	return nil
}

var _ storage.Backend = (*Backend)(nil)
