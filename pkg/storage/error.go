package storage

import "fmt"

// ErrNotFound is returned when a record doesn't exist in the backend.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "record not found"
	}

	return "record not found: " + e.ID
}

// ErrOwnerMismatch is returned when a write is attempted under an owner id
// that does not match the active session. Writing to the wrong owner's
// collection would silently misattribute data, so this surfaces loudly
// instead of being swallowed.
type ErrOwnerMismatch struct {
	Active    string
	Requested string
}

func (e ErrOwnerMismatch) Error() string {
	return fmt.Sprintf("owner mismatch: session=%s requested=%s", e.Active, e.Requested)
}

// ErrMissingID is returned when a record without an id reaches a save path.
// The id is the storage key in both backends, so a missing one is a
// programming error on the caller's side.
type ErrMissingID struct {
	StoreName string
}

func (e ErrMissingID) Error() string {
	if e.StoreName == "" {
		return "record id is missing"
	}

	return "record id is missing: " + e.StoreName
}
