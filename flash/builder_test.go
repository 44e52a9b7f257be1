package flash

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Builder", func() {
	It("should build a device with the requested geometry", func() {
		d, err := MakeBuilder().
			WithCapacity(8192).
			WithReadUnit(1).
			WithWriteUnit(4).
			WithEraseUnit(4096).
			Build("Flash")

		Expect(err).ToNot(HaveOccurred())
		Expect(d.Name()).To(Equal("Flash"))
		Expect(d.Capacity()).To(Equal(uint64(8192)))
		Expect(d.PageCount()).To(Equal(2))
		Expect(d.MultiwriteEnabled()).To(BeFalse())
	})

	It("should start with every byte erased", func() {
		d, err := MakeBuilder().WithCapacity(4096).Build("Flash")
		Expect(err).ToNot(HaveOccurred())

		buf := make([]byte, 4096)
		Expect(d.Read(0, buf)).To(Succeed())
		for _, b := range buf {
			Expect(b).To(Equal(byte(0xFF)))
		}
	})

	It("should reject a zero capacity", func() {
		_, err := MakeBuilder().WithCapacity(0).Build("Flash")
		Expect(ErrInvalidConfig.Has(err)).To(BeTrue())
	})

	It("should reject zero units", func() {
		_, err := MakeBuilder().WithWriteUnit(0).Build("Flash")
		Expect(ErrInvalidConfig.Has(err)).To(BeTrue())
	})

	It("should reject an erase unit that does not divide the capacity", func() {
		_, err := MakeBuilder().
			WithCapacity(5000).
			WithEraseUnit(4096).
			Build("Flash")
		Expect(ErrInvalidConfig.Has(err)).To(BeTrue())
	})

	It("should reject a write unit that does not divide the erase unit", func() {
		_, err := MakeBuilder().
			WithWriteUnit(3).
			WithEraseUnit(4096).
			Build("Flash")
		Expect(ErrInvalidConfig.Has(err)).To(BeTrue())
	})

	It("should reject a read unit that does not divide the write unit", func() {
		_, err := MakeBuilder().
			WithReadUnit(8).
			WithWriteUnit(4).
			Build("Flash")
		Expect(ErrInvalidConfig.Has(err)).To(BeTrue())
	})

	It("should reject a wear threshold without a failure rate", func() {
		_, err := MakeBuilder().WithWearThreshold(100).Build("Flash")
		Expect(ErrInvalidConfig.Has(err)).To(BeTrue())
	})

	It("should reject a negative log capacity", func() {
		_, err := MakeBuilder().WithLogCapacity(-1).Build("Flash")
		Expect(ErrInvalidConfig.Has(err)).To(BeTrue())
	})
})
