// Package stamp defines the store-visit record model, the store-name
// normalizer used for deduplication, and the pure merge engine that
// reconciles newly extracted records into an existing collection.
package stamp

import "math"

// AnonymousOwner is the sentinel owner id for guest-mode collections.
// Records created before sign-in carry it until migration rewrites them.
const AnonymousOwner = "guest"

// Record is one visited-store entry in a passport collection.
//
// LastVisitDate, VisitCount, Latitude, and Longitude are pointers because
// "unknown" is a meaningful state distinct from the zero value: a passport
// page may simply not show a visit count, and that must never be read as
// zero visits. JSON tags mirror the wire shape shared with the web UI and
// the remote document collection.
type Record struct {
	ID            string   `json:"id"`
	OwnerID       string   `json:"userId"`
	StoreName     string   `json:"storeName"`
	Prefecture    string   `json:"prefecture"`
	Address       string   `json:"address"`
	LastVisitDate *string  `json:"lastVisitDate,omitempty"`
	VisitCount    *int     `json:"visitCount,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// Sanitize normalizes degenerate optional fields: NaN coordinates become
// absent, and a negative visit count is dropped rather than stored.
func (r *Record) Sanitize() {
	if r.Latitude != nil && math.IsNaN(*r.Latitude) {
		r.Latitude = nil
	}
	if r.Longitude != nil && math.IsNaN(*r.Longitude) {
		r.Longitude = nil
	}
	if r.VisitCount != nil && *r.VisitCount < 0 {
		r.VisitCount = nil
	}
}

// VisitDate returns the last visit date, or "" when unknown.
func (r Record) VisitDate() string {
	if r.LastVisitDate == nil {
		return ""
	}
	return *r.LastVisitDate
}

// Visits returns the visit count, or 0 when unknown.
func (r Record) Visits() int {
	if r.VisitCount == nil {
		return 0
	}
	return *r.VisitCount
}
