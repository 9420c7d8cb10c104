// Package extract turns passport screenshots into stamp record candidates.
package extract

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
)

// ErrExtraction is the sentinel for extraction failures. Provider errors
// wrap it so callers can branch without knowing the provider.
var ErrExtraction = errors.New("extraction failed")

// Candidate is one stamp as read off an image. It carries no identity;
// ids are assigned when candidates become records.
type Candidate struct {
	StoreName     string   `json:"storeName"`
	Prefecture    string   `json:"prefecture"`
	Address       string   `json:"address"`
	LastVisitDate *string  `json:"lastVisitDate,omitempty"`
	VisitCount    *int     `json:"visitCount,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// Extractor reads stamp candidates from a screenshot. The image may be a
// single stamp detail page or a grid of many stamps.
type Extractor interface {
	// Extract parses the image and returns the candidates it found.
	Extract(ctx context.Context, image []byte, mimeType string) ([]Candidate, error)

	// Close releases any resources held by the extractor.
	Close() error
}

// ToRecords converts candidates into records ready for ingestion.
// Candidates without a usable store name are dropped, everything else
// gets a fresh id and a sanitization pass.
func ToRecords(candidates []Candidate) []stamp.Record {
	records := make([]stamp.Record, 0, len(candidates))
	for _, cand := range candidates {
		if stamp.NormalizeName(cand.StoreName) == "" {
			continue
		}
		rec := stamp.Record{
			ID:            uuid.NewString(),
			StoreName:     cand.StoreName,
			Prefecture:    cand.Prefecture,
			Address:       cand.Address,
			LastVisitDate: cand.LastVisitDate,
			VisitCount:    cand.VisitCount,
			Latitude:      cand.Latitude,
			Longitude:     cand.Longitude,
		}
		rec.Sanitize()
		records = append(records, rec)
	}
	return records
}
