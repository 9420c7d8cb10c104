// Package mock implements pkg/extract's Extractor with a fixed dataset,
// for demos and offline development.
package mock

import (
	"context"
	"time"

	"github.com/tomp11/sb-stamp-manager/pkg/extract"
)

// Extractor returns the same three stamps for every image.
type Extractor struct {
	// Delay is waited before returning, to mimic a real provider.
	// Zero means no wait.
	Delay time.Duration
}

// NewExtractor creates a mock extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract ignores the image and returns the sample dataset.
func (e *Extractor) Extract(ctx context.Context, _ []byte, _ string) ([]extract.Candidate, error) {
	if e.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.Delay):
		}
	}
	return sampleCandidates(), nil
}

// Close releases resources held by the extractor.
func (e *Extractor) Close() error {
	return nil
}

func sampleCandidates() []extract.Candidate {
	date1 := "2024/05/20"
	count1 := 3
	lat1, lon1 := 41.7946, 140.7541

	lat2, lon2 := 35.6491, 139.6925

	date3 := "2024/01/10"
	count3 := 1
	lat3, lon3 := 33.5215, 130.5310

	return []extract.Candidate{
		{
			StoreName:     "函館五稜郭公園前店",
			Prefecture:    "北海道",
			Address:       "北海道 函館市 五稜郭町30-14",
			LastVisitDate: &date1,
			VisitCount:    &count1,
			Latitude:      &lat1,
			Longitude:     &lon1,
		},
		{
			StoreName:  "スターバックス リザーブ ロースタリー 東京",
			Prefecture: "東京都",
			Address:    "東京都 目黒区 青葉台2-19-23",
			Latitude:   &lat2,
			Longitude:  &lon2,
		},
		{
			StoreName:     "太宰府天満宮表参道店",
			Prefecture:    "福岡県",
			Address:       "福岡県 太宰府市 宰府3-2-43",
			LastVisitDate: &date3,
			VisitCount:    &count3,
			Latitude:      &lat3,
			Longitude:     &lon3,
		},
	}
}
