// Package storage defines the backend interface for persisting stamp
// collections and the typed errors backends return.
package storage

import (
	"context"
	"sort"

	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
)

// Backend is the interface for persisting an owner's stamp collection.
// The collection store selects exactly one backend per identity context:
// the on-device sqlite cache while anonymous, the remote postgres document
// collection once signed in. Backends are mirrors of the in-memory
// collection, never sources of truth while it is live; the collection
// store only reads from a backend during (re)initialization.
type Backend interface {
	// Load fetches the full set of records under the owner's collection.
	// Implementations degrade to an empty slice on unreadable or corrupt
	// data so the caller can proceed in a degraded state.
	Load(ctx context.Context, ownerID string) ([]stamp.Record, error)

	// Save upserts each record under its ID. Unspecified fields already
	// present on the stored side are preserved, not nulled. A failure must
	// surface to the caller so it can re-arm its dirty state.
	Save(ctx context.Context, records []stamp.Record, ownerID string) error

	// Delete removes a single record by id.
	Delete(ctx context.Context, ownerID, id string) error

	// Clear drops the owner's entire collection. Migration uses it to
	// drain the anonymous cache exactly once.
	Clear(ctx context.Context, ownerID string) error

	// Close releases any resources held by the backend.
	Close() error
}

// SortByVisitDate orders records by last visit date descending, records
// without a date last. Loads always fetch everything and sort client-side
// so a partial index can never hide records.
func SortByVisitDate(records []stamp.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].VisitDate() > records[j].VisitDate()
	})
}
