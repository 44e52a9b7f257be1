package queue

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sarchlab/norsim/flash"
	"github.com/sarchlab/norsim/workloads"
)

// PushFullPopAll pushes 16-byte elements until the queue fills up, then
// pops everything back and verifies the payloads, repeating for runCount
// rounds. The hook is called after every push and pop; returning false
// stops the driver.
func PushFullPopAll(
	d *flash.Device,
	runCount int,
	hook workloads.Hook,
) error {
	q, err := NewQueue(d)
	if err != nil {
		return err
	}

	payload := bytes.Repeat([]byte{0xa5}, 16)

	for run := 0; run < runCount; run++ {
		count := 100000
		for i := 0; i < count; i++ {
			d.StartOperation(workloads.OpQueuePush)
			if err := q.Push(payload); err != nil {
				if !ErrQueueFull.Has(err) {
					return err
				}

				fmt.Fprintf(os.Stderr, "Full after %d pushes: %s\n", i, err)
				count = i

				break
			}

			if hook != nil && !hook(d) {
				return nil
			}
		}

		for i := 0; i < count; i++ {
			d.StartOperation(workloads.OpQueuePop)
			data, err := q.Pop()
			if err != nil {
				return err
			}

			if !bytes.Equal(data, payload) {
				return ErrCorruptRecord.New(
					"popped %x, expected %x", data, payload)
			}

			if hook != nil && !hook(d) {
				return nil
			}
		}
	}

	return nil
}
