package stamp

// Tally reports what a merge did with each incoming candidate.
type Tally struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Total returns the number of candidates the merge consumed.
func (t Tally) Total() int {
	return t.Added + t.Updated + t.Skipped
}

// Merge reconciles a batch of incoming candidate records into an existing
// collection and returns the new collection plus a change tally. The inputs
// are never mutated; Merge is a pure function so it can be tested with
// explicit before/after lists and reused by both ingestion and migration.
//
// Matching is by normalized store name. Unmatched candidates become new
// records owned by ownerID and are prepended, keeping most-recent-first
// list order. A matched candidate only replaces the existing record when it
// "wins" on at least one recency signal: a lexically later LastVisitDate
// (valid because the format is zero-padded YYYY/MM/DD) or a numerically
// greater VisitCount. The update is field-level greatest-wins rather than
// record-level last-writer-wins: whichever of the two signals did not win
// keeps the existing value. The existing record's ID and OwnerID always
// survive an update.
//
// An absent LastVisitDate or VisitCount on the candidate side never wins,
// and therefore never overwrites a present value.
func Merge(existing, incoming []Record, ownerID string) ([]Record, Tally) {
	merged := make([]Record, len(existing))
	copy(merged, existing)

	var tally Tally
	for _, cand := range incoming {
		cand.Sanitize()

		key := NormalizeName(cand.StoreName)
		idx := -1
		for i := range merged {
			if NormalizeName(merged[i].StoreName) == key {
				idx = i
				break
			}
		}

		if idx < 0 {
			rec := cand
			rec.OwnerID = ownerID
			merged = append([]Record{rec}, merged...)
			tally.Added++
			continue
		}

		cur := merged[idx]
		moreRecent := laterDate(cand.LastVisitDate, cur)
		moreVisits := greaterCount(cand.VisitCount, cur)
		if !moreRecent && !moreVisits {
			tally.Skipped++
			continue
		}

		next := cand
		next.ID = cur.ID
		next.OwnerID = cur.OwnerID
		if !moreRecent {
			next.LastVisitDate = cur.LastVisitDate
		}
		if !moreVisits {
			next.VisitCount = cur.VisitCount
		}
		if next.Latitude == nil {
			next.Latitude = cur.Latitude
		}
		if next.Longitude == nil {
			next.Longitude = cur.Longitude
		}
		merged[idx] = next
		tally.Updated++
	}

	return merged, tally
}

// laterDate reports whether the candidate's visit date beats the existing
// record's. An unknown candidate date never wins.
func laterDate(cand *string, cur Record) bool {
	return cand != nil && *cand > cur.VisitDate()
}

// greaterCount reports whether the candidate's visit count beats the
// existing record's. An unknown candidate count never wins.
func greaterCount(cand *int, cur Record) bool {
	return cand != nil && *cand > cur.Visits()
}
