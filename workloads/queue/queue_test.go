package queue

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/norsim/flash"
)

var _ = Describe("Queue", func() {
	var (
		device *flash.Device
		q      *Queue
	)

	BeforeEach(func() {
		var err error
		device, err = flash.MakeBuilder().
			WithCapacity(16384).
			WithEraseUnit(4096).
			WithWriteUnit(4).
			Build("Flash")
		Expect(err).ToNot(HaveOccurred())

		q, err = NewQueue(device)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should pop elements in push order", func() {
		Expect(q.Push([]byte("first"))).To(Succeed())
		Expect(q.Push([]byte("second"))).To(Succeed())
		Expect(q.Push([]byte("third"))).To(Succeed())
		Expect(q.Len()).To(Equal(3))

		data, err := q.Pop()
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(Equal([]byte("first")))

		data, err = q.Pop()
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(Equal([]byte("second")))

		data, err = q.Pop()
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(Equal([]byte("third")))
		Expect(q.Len()).To(Equal(0))
	})

	It("should return nil when empty", func() {
		data, err := q.Pop()
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(BeNil())
	})

	It("should skip page tails that cannot hold an element", func() {
		// 96 bytes per record does not divide the 4096-byte page.
		payload := bytes.Repeat([]byte{0x5a}, 90)

		pushed := 0
		for {
			payload[0] = byte(pushed)
			if err := q.Push(payload); err != nil {
				Expect(ErrQueueFull.Has(err)).To(BeTrue())
				break
			}
			pushed++
		}
		Expect(pushed).To(Equal(4 * 42))

		for i := 0; i < pushed; i++ {
			data, err := q.Pop()
			Expect(err).ToNot(HaveOccurred())
			Expect(data[0]).To(Equal(byte(i)))
			Expect(data[1:]).To(Equal(payload[1:]))
		}
	})

	It("should erase drained pages when wrapping around", func() {
		payload := bytes.Repeat([]byte{0xa5}, 60)

		for round := 0; round < 3; round++ {
			pushed := 0
			for {
				if err := q.Push(payload); err != nil {
					break
				}
				pushed++
			}

			for i := 0; i < pushed; i++ {
				data, err := q.Pop()
				Expect(err).ToNot(HaveOccurred())
				Expect(data).To(Equal(payload))
			}
		}

		snapshot := device.Snapshot()
		for _, p := range snapshot.Pages {
			Expect(p.EraseCount).To(BeNumerically(">=", 2))
		}
	})

	It("should refuse elements larger than a page", func() {
		err := q.Push(make([]byte, 4096))
		Expect(ErrRecordTooLarge.Has(err)).To(BeTrue())
	})
})

var _ = Describe("PushFullPopAll", func() {
	It("should fill and drain the queue", func() {
		device, err := flash.MakeBuilder().
			WithCapacity(8192).
			WithEraseUnit(4096).
			WithWriteUnit(4).
			WithLogLevel(flash.LogMinimal).
			Build("Flash")
		Expect(err).ToNot(HaveOccurred())

		hookCalls := 0
		err = PushFullPopAll(device, 2, func(d *flash.Device) bool {
			hookCalls++
			return true
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(hookCalls).To(BeNumerically(">", 0))

		// The push that hits the full queue is tagged but never hooked,
		// once per round.
		Expect(device.TotalOperations()).To(Equal(uint64(hookCalls + 2)))
	})

	It("should stop when the hook returns false", func() {
		device, err := flash.MakeBuilder().
			WithCapacity(8192).
			WithEraseUnit(4096).
			WithWriteUnit(4).
			Build("Flash")
		Expect(err).ToNot(HaveOccurred())

		err = PushFullPopAll(device, 1, func(d *flash.Device) bool {
			return d.TotalOperations() < 10
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(device.TotalOperations()).To(Equal(uint64(10)))
	})
})
