// Package queue implements a FIFO queue stored on a simulated flash
// device. Elements are appended as length-prefixed records that never
// cross a page boundary, and pages are erased lazily when the write
// position wraps back into them.
package queue

import (
	"encoding/binary"

	"github.com/zeebo/errs"

	"github.com/sarchlab/norsim/flash"
)

var (
	// ErrQueueFull is returned when a push cannot fit before the write
	// position would run into unread elements.
	ErrQueueFull = errs.Class("queue: full")

	// ErrRecordTooLarge is returned when an element does not fit in a
	// single page.
	ErrRecordTooLarge = errs.Class("queue: record too large")

	// ErrCorruptRecord is returned when a stored record cannot be decoded.
	ErrCorruptRecord = errs.Class("queue: corrupt record")
)

const headerSize = 4

// unwrittenLength is what a record header reads as in erased space.
const unwrittenLength = 0xffffffff

// Queue is a circular FIFO over an entire flash device. The head and tail
// are virtual addresses that grow monotonically; their physical location
// is the address modulo the device capacity.
type Queue struct {
	device *flash.Device

	capacity  uint64
	align     uint64
	readUnit  uint64
	eraseUnit uint64

	head          uint64
	tail          uint64
	erasedThrough uint64
	count         int
}

// NewQueue creates a queue over the full capacity of the device. The
// device is expected to start fully erased.
func NewQueue(d *flash.Device) (*Queue, error) {
	align := d.WriteUnit()
	if d.EraseUnit() < align+headerSize {
		return nil, ErrRecordTooLarge.New(
			"erase unit %d cannot hold any record", d.EraseUnit())
	}

	return &Queue{
		device:        d,
		capacity:      d.Capacity(),
		align:         align,
		readUnit:      d.ReadUnit(),
		eraseUnit:     d.EraseUnit(),
		erasedThrough: d.Capacity(),
	}, nil
}

// Len returns the number of elements currently stored.
func (q *Queue) Len() int {
	return q.count
}

// Push appends an element to the queue.
func (q *Queue) Push(data []byte) error {
	total := roundUp(headerSize+uint64(len(data)), q.align)
	if total > q.eraseUnit {
		return ErrRecordTooLarge.New(
			"element of %d bytes exceeds the %d-byte page",
			len(data), q.eraseUnit)
	}

	pos := q.tail
	if rem := q.eraseUnit - pos%q.eraseUnit; rem < total {
		pos += rem
	}

	if pos%q.eraseUnit == 0 {
		if err := q.enterPage(pos); err != nil {
			return err
		}
	}

	record := make([]byte, total)
	binary.LittleEndian.PutUint32(record, uint32(len(data)))
	copy(record[headerSize:], data)
	for i := headerSize + len(data); i < len(record); i++ {
		record[i] = 0xff
	}

	if err := q.device.Write(pos%q.capacity, record); err != nil {
		return err
	}

	q.tail = pos + total
	q.count++

	return nil
}

// Pop removes and returns the oldest element, or nil if the queue is
// empty.
func (q *Queue) Pop() ([]byte, error) {
	hdrLen := roundUp(headerSize, q.readUnit)

	for {
		if q.head == q.tail {
			return nil, nil
		}

		pos := q.head
		rem := q.eraseUnit - pos%q.eraseUnit
		if rem < hdrLen {
			q.head = pos + rem
			continue
		}

		header := make([]byte, hdrLen)
		if err := q.device.Read(pos%q.capacity, header); err != nil {
			return nil, err
		}

		length := uint64(binary.LittleEndian.Uint32(header))
		if length == unwrittenLength {
			// The element did not fit in the page tail and was pushed to
			// the next page.
			q.head = pos + rem
			continue
		}

		total := roundUp(headerSize+length, q.align)
		if total > rem {
			return nil, ErrCorruptRecord.New(
				"element of %d bytes at 0x%x crosses a page boundary",
				length, pos%q.capacity)
		}

		record := make([]byte, total)
		if err := q.device.Read(pos%q.capacity, record); err != nil {
			return nil, err
		}

		q.head = pos + total
		q.count--

		return record[headerSize : headerSize+length], nil
	}
}

// enterPage prepares the page starting at the given virtual address for
// writing. The page must be fully drained, and is erased unless it has
// never been written since the last erase.
func (q *Queue) enterPage(pos uint64) error {
	if pos+q.eraseUnit > q.head+q.capacity {
		return ErrQueueFull.New(
			"page at 0x%x still holds unread elements", pos%q.capacity)
	}

	if pos >= q.erasedThrough {
		phys := pos % q.capacity
		if err := q.device.Erase(phys, phys+q.eraseUnit); err != nil {
			return err
		}

		q.erasedThrough = pos + q.eraseUnit
	}

	return nil
}

func roundUp(n, unit uint64) uint64 {
	return (n + unit - 1) / unit * unit
}
