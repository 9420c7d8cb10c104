package stamp_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

var _ = Describe("Merge", func() {
	existingRecord := func() stamp.Record {
		return stamp.Record{
			ID:            "R1",
			OwnerID:       "owner-1",
			StoreName:     "目黒店",
			Prefecture:    "東京都",
			Address:       "東京都 目黒区",
			LastVisitDate: strPtr("2024/01/01"),
			VisitCount:    intPtr(5),
		}
	}

	It("adds unmatched candidates at the front with the given owner", func() {
		existing := []stamp.Record{existingRecord()}
		incoming := []stamp.Record{{
			ID:         "N1",
			StoreName:  "渋谷店",
			Prefecture: "東京都",
		}}

		merged, tally := stamp.Merge(existing, incoming, "owner-1")

		Expect(tally).To(Equal(stamp.Tally{Added: 1}))
		Expect(merged).To(HaveLen(2))
		Expect(merged[0].StoreName).To(Equal("渋谷店"))
		Expect(merged[0].OwnerID).To(Equal("owner-1"))
		Expect(merged[0].ID).To(Equal("N1"))
		Expect(merged[1].ID).To(Equal("R1"))
	})

	It("matches by normalized name, not raw string equality", func() {
		existing := []stamp.Record{existingRecord()}
		incoming := []stamp.Record{{
			ID:            "N1",
			StoreName:     "目黒 店",
			LastVisitDate: strPtr("2024/06/01"),
		}}

		merged, tally := stamp.Merge(existing, incoming, "owner-1")

		Expect(tally).To(Equal(stamp.Tally{Updated: 1}))
		Expect(merged).To(HaveLen(1))
		Expect(merged[0].ID).To(Equal("R1"))
	})

	It("applies field-level greatest-wins, not record-level last-writer-wins", func() {
		existing := []stamp.Record{existingRecord()}
		// Later date but a regressed count: the date updates, the count holds.
		incoming := []stamp.Record{{
			ID:            "N1",
			StoreName:     "目黒店",
			LastVisitDate: strPtr("2024/06/01"),
			VisitCount:    intPtr(3),
		}}

		merged, tally := stamp.Merge(existing, incoming, "owner-1")

		Expect(tally).To(Equal(stamp.Tally{Updated: 1}))
		Expect(*merged[0].LastVisitDate).To(Equal("2024/06/01"))
		Expect(*merged[0].VisitCount).To(Equal(5))
	})

	It("never lets an unknown candidate value overwrite a present one", func() {
		existing := []stamp.Record{{
			ID:         "R1",
			StoreName:  "目黒店",
			VisitCount: intPtr(2),
		}}
		incoming := []stamp.Record{{
			ID:            "N1",
			StoreName:     "目黒店",
			LastVisitDate: strPtr("2024/06/01"),
		}}

		merged, tally := stamp.Merge(existing, incoming, "owner-1")

		Expect(tally).To(Equal(stamp.Tally{Updated: 1}))
		Expect(*merged[0].LastVisitDate).To(Equal("2024/06/01"))
		Expect(*merged[0].VisitCount).To(Equal(2))
	})

	It("skips candidates that win on neither signal", func() {
		existing := []stamp.Record{existingRecord()}
		incoming := []stamp.Record{{
			ID:            "N1",
			StoreName:     "目黒店",
			LastVisitDate: strPtr("2023/12/31"),
			VisitCount:    intPtr(4),
		}}

		merged, tally := stamp.Merge(existing, incoming, "owner-1")

		Expect(tally).To(Equal(stamp.Tally{Skipped: 1}))
		Expect(merged).To(Equal(existing))
	})

	It("preserves the existing id and owner on update", func() {
		existing := []stamp.Record{existingRecord()}
		incoming := []stamp.Record{{
			ID:            "local-id",
			OwnerID:       stamp.AnonymousOwner,
			StoreName:     "目黒店",
			LastVisitDate: strPtr("2025/01/01"),
		}}

		merged, _ := stamp.Merge(existing, incoming, "owner-1")

		Expect(merged[0].ID).To(Equal("R1"))
		Expect(merged[0].OwnerID).To(Equal("owner-1"))
	})

	It("keeps existing coordinates when the candidate has none", func() {
		rec := existingRecord()
		rec.Latitude = floatPtr(35.6)
		rec.Longitude = floatPtr(139.7)
		existing := []stamp.Record{rec}
		incoming := []stamp.Record{{
			StoreName:     "目黒店",
			LastVisitDate: strPtr("2025/01/01"),
		}}

		merged, _ := stamp.Merge(existing, incoming, "owner-1")

		Expect(*merged[0].Latitude).To(Equal(35.6))
		Expect(*merged[0].Longitude).To(Equal(139.7))
	})

	It("normalizes NaN coordinates to absent", func() {
		incoming := []stamp.Record{{
			StoreName: "新宿店",
			Latitude:  floatPtr(math.NaN()),
			Longitude: floatPtr(139.7),
		}}

		merged, _ := stamp.Merge(nil, incoming, "owner-1")

		Expect(merged[0].Latitude).To(BeNil())
		Expect(*merged[0].Longitude).To(Equal(139.7))
	})

	It("is idempotent: a second pass over the same batch skips everything", func() {
		incoming := []stamp.Record{
			{ID: "A", StoreName: "目黒店", LastVisitDate: strPtr("2024/05/01"), VisitCount: intPtr(2)},
			{ID: "B", StoreName: "渋谷店", VisitCount: intPtr(1)},
		}

		once, firstTally := stamp.Merge(nil, incoming, "owner-1")
		Expect(firstTally).To(Equal(stamp.Tally{Added: 2}))

		twice, secondTally := stamp.Merge(once, incoming, "owner-1")
		Expect(secondTally).To(Equal(stamp.Tally{Skipped: 2}))
		Expect(twice).To(Equal(once))
	})

	It("agrees between single merges and one batch ending in the winner", func() {
		loser := stamp.Record{ID: "L", StoreName: "目黒店", VisitCount: intPtr(1)}
		winner := stamp.Record{ID: "W", StoreName: "目黒店", VisitCount: intPtr(9)}

		stepwise, _ := stamp.Merge(nil, []stamp.Record{loser}, "owner-1")
		stepwise, _ = stamp.Merge(stepwise, []stamp.Record{winner}, "owner-1")

		batched, _ := stamp.Merge(nil, []stamp.Record{loser, winner}, "owner-1")

		Expect(batched).To(Equal(stepwise))
	})

	It("does not mutate its inputs", func() {
		existing := []stamp.Record{existingRecord()}
		incoming := []stamp.Record{{
			StoreName:     "目黒店",
			LastVisitDate: strPtr("2025/01/01"),
		}}

		_, _ = stamp.Merge(existing, incoming, "owner-1")

		Expect(*existing[0].LastVisitDate).To(Equal("2024/01/01"))
	})
})
