package kvlog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"

	"github.com/sarchlab/norsim/flash"
	"github.com/sarchlab/norsim/workloads"
)

// RandomFill stores 16-byte values under random keys and then removes
// them again, for ten rounds. The key sequence is derived from the seed,
// so runs with the same seed issue the same operations. The hook is
// called after every store and remove; returning false stops the driver.
func RandomFill(d *flash.Device, seed int64, hook workloads.Hook) error {
	s, err := NewStore(d)
	if err != nil {
		return err
	}

	payload := bytes.Repeat([]byte{0xa5}, 16)
	rng := rand.New(rand.NewSource(seed))

	const count = 10000

	for round := 0; round < 10; round++ {
		var storedKeys [][]byte
		for i := 0; i < count; i++ {
			key := make([]byte, 2)
			binary.LittleEndian.PutUint16(key, uint16(rng.Intn(count)))

			d.StartOperation(workloads.OpMapStore)
			if err := s.Store(key, payload); err != nil {
				if !ErrStoreFull.Has(err) {
					return err
				}

				fmt.Fprintf(os.Stderr, "Full after %d stores: %s\n", i, err)

				break
			}
			storedKeys = append(storedKeys, key)

			if hook != nil && !hook(d) {
				return nil
			}
		}

		for _, key := range storedKeys {
			d.StartOperation(workloads.OpMapRemove)
			if err := s.Remove(key); err != nil {
				return err
			}

			if hook != nil && !hook(d) {
				return nil
			}
		}
	}

	return nil
}
