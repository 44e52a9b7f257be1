package kvlog

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/norsim/flash"
)

var _ = Describe("Store", func() {
	var (
		device *flash.Device
		s      *Store
	)

	BeforeEach(func() {
		var err error
		device, err = flash.MakeBuilder().
			WithCapacity(16384).
			WithEraseUnit(4096).
			WithWriteUnit(4).
			Build("Flash")
		Expect(err).ToNot(HaveOccurred())

		s, err = NewStore(device)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should fetch stored values", func() {
		Expect(s.Store([]byte("alpha"), []byte("one"))).To(Succeed())
		Expect(s.Store([]byte("beta"), []byte("two"))).To(Succeed())

		value, ok, err := s.Fetch([]byte("alpha"))
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(value).To(Equal([]byte("one")))

		value, ok, err = s.Fetch([]byte("beta"))
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(value).To(Equal([]byte("two")))
	})

	It("should report absent keys", func() {
		_, ok, err := s.Fetch([]byte("missing"))
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("should supersede earlier values without erasing", func() {
		Expect(s.Store([]byte("key"), []byte("old"))).To(Succeed())
		Expect(s.Store([]byte("key"), []byte("new"))).To(Succeed())

		value, ok, err := s.Fetch([]byte("key"))
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(value).To(Equal([]byte("new")))
		Expect(s.Len()).To(Equal(1))

		Expect(device.Snapshot().Counters.TotalErases).To(Equal(uint64(0)))
	})

	It("should remove keys with tombstones", func() {
		Expect(s.Store([]byte("key"), []byte("value"))).To(Succeed())
		Expect(s.Remove([]byte("key"))).To(Succeed())

		_, ok, err := s.Fetch([]byte("key"))
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(s.Len()).To(Equal(0))
	})

	It("should compact when the log fills up", func() {
		// Each record takes 24 bytes, so rewriting one key eventually
		// overflows the 16 KiB device and triggers compaction.
		for i := 0; i < 1000; i++ {
			value := []byte(fmt.Sprintf("value-%04d", i))
			Expect(s.Store([]byte("key"), value)).To(Succeed())
		}

		value, ok, err := s.Fetch([]byte("key"))
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(value).To(Equal([]byte("value-0999")))

		Expect(device.Snapshot().Counters.TotalErases).
			To(BeNumerically(">", 0))
	})

	It("should recover the index from device contents", func() {
		Expect(s.Store([]byte("kept"), []byte("value"))).To(Succeed())
		Expect(s.Store([]byte("removed"), []byte("value"))).To(Succeed())
		Expect(s.Remove([]byte("removed"))).To(Succeed())

		recovered, err := NewStore(device)
		Expect(err).ToNot(HaveOccurred())
		Expect(recovered.Len()).To(Equal(1))

		value, ok, err := recovered.Fetch([]byte("kept"))
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(value).To(Equal([]byte("value")))

		Expect(recovered.Store([]byte("more"), []byte("data"))).To(Succeed())
	})

	It("should refuse records larger than a page", func() {
		err := s.Store([]byte("key"), make([]byte, 4096))
		Expect(ErrRecordTooLarge.Has(err)).To(BeTrue())
	})
})

var _ = Describe("RandomFill", func() {
	It("should store and remove the same keys for the same seed", func() {
		run := func() uint64 {
			device, err := flash.MakeBuilder().
				WithCapacity(1 << 20).
				WithEraseUnit(4096).
				WithWriteUnit(4).
				Build("Flash")
			Expect(err).ToNot(HaveOccurred())

			Expect(RandomFill(device, 1, nil)).To(Succeed())

			return device.Snapshot().Counters.TotalWrites
		}

		Expect(run()).To(Equal(run()))
	})

	It("should stop when the hook returns false", func() {
		device, err := flash.MakeBuilder().
			WithCapacity(1 << 20).
			WithEraseUnit(4096).
			WithWriteUnit(4).
			Build("Flash")
		Expect(err).ToNot(HaveOccurred())

		err = RandomFill(device, 1, func(d *flash.Device) bool {
			return d.TotalOperations() < 5
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(device.TotalOperations()).To(Equal(uint64(5)))
	})
})
