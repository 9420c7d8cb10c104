package extract_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tomp11/sb-stamp-manager/pkg/extract"
	"github.com/tomp11/sb-stamp-manager/pkg/extract/mock"
)

var _ = Describe("ToRecords", func() {
	It("assigns a fresh id to every candidate", func() {
		records := extract.ToRecords([]extract.Candidate{
			{StoreName: "目黒店"},
			{StoreName: "渋谷店"},
		})

		Expect(records).To(HaveLen(2))
		Expect(records[0].ID).NotTo(BeEmpty())
		Expect(records[1].ID).NotTo(BeEmpty())
		Expect(records[0].ID).NotTo(Equal(records[1].ID))
	})

	It("drops candidates whose name normalizes to nothing", func() {
		records := extract.ToRecords([]extract.Candidate{
			{StoreName: "  "},
			{StoreName: "目黒店"},
			{StoreName: ""},
		})

		Expect(records).To(HaveLen(1))
		Expect(records[0].StoreName).To(Equal("目黒店"))
	})

	It("sanitizes unusable signal values", func() {
		nan := math.NaN()
		negative := -2

		records := extract.ToRecords([]extract.Candidate{{
			StoreName:  "目黒店",
			Latitude:   &nan,
			VisitCount: &negative,
		}})

		Expect(records).To(HaveLen(1))
		Expect(records[0].Latitude).To(BeNil())
		Expect(records[0].VisitCount).To(BeNil())
	})
})

var _ = Describe("Mock extractor", func() {
	It("returns the sample dataset for any image", func() {
		e := mock.NewExtractor()
		defer e.Close()

		candidates, err := e.Extract(context.Background(), []byte("whatever"), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(3))
		Expect(candidates[0].StoreName).To(Equal("函館五稜郭公園前店"))
		Expect(candidates[1].LastVisitDate).To(BeNil())
		Expect(candidates[1].VisitCount).To(BeNil())
		Expect(*candidates[2].VisitCount).To(Equal(1))
	})

	It("honors context cancellation while delaying", func() {
		e := mock.NewExtractor()
		e.Delay = time.Hour
		defer e.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := e.Extract(ctx, nil, "")
		Expect(err).To(MatchError(context.Canceled))
	})
})
