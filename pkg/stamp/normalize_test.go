package stamp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
)

var _ = Describe("NormalizeName", func() {
	It("trims surrounding whitespace", func() {
		Expect(stamp.NormalizeName("  目黒店  ")).To(Equal(stamp.NormalizeName("目黒店")))
	})

	It("removes internal whitespace, including ideographic spaces", func() {
		Expect(stamp.NormalizeName("目黒 店")).To(Equal(stamp.NormalizeName("目黒店")))
		Expect(stamp.NormalizeName("目黒　店")).To(Equal(stamp.NormalizeName("目黒店")))
	})

	It("collapses full-width and half-width variants", func() {
		Expect(stamp.NormalizeName("ｽﾀｰﾊﾞｯｸｽ")).To(Equal(stamp.NormalizeName("スターバックス")))
		Expect(stamp.NormalizeName("Ｓｈｉｂｕｙａ")).To(Equal(stamp.NormalizeName("Shibuya")))
	})

	It("unifies parenthesis forms", func() {
		Expect(stamp.NormalizeName("目黒（店）")).To(Equal(stamp.NormalizeName("目黒(店)")))
	})

	It("keeps distinct store names distinct", func() {
		Expect(stamp.NormalizeName("目黒店")).NotTo(Equal(stamp.NormalizeName("渋谷店")))
	})

	It("is total on empty input", func() {
		Expect(stamp.NormalizeName("")).To(Equal(""))
		Expect(stamp.NormalizeName("   ")).To(Equal(""))
	})
})
