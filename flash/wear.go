package flash

import "math/rand"

// wearModel decides when erasing a page injects a stuck bit. The model is
// evaluated after the page's erase count has been incremented. Randomness
// comes from a private seeded source so that runs are reproducible.
type wearModel struct {
	minCycles     uint64
	rate          uint64
	probabilistic bool
	rng           *rand.Rand
}

func newWearModel(
	minCycles, rate uint64,
	probabilistic bool,
	seed int64,
) *wearModel {
	return &wearModel{
		minCycles:     minCycles,
		rate:          rate,
		probabilistic: probabilistic,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

func (m *wearModel) enabled() bool {
	return m.minCycles > 0
}

// shouldInject reports whether this erase of a page with the given erase
// count triggers a failure. Deterministic mode injects once every rate
// erases past the threshold, so the first injection on a page happens at
// erase number minCycles+rate. Probabilistic mode injects with probability
// 1/rate per qualifying erase.
func (m *wearModel) shouldInject(eraseCount uint64) bool {
	if !m.enabled() || eraseCount <= m.minCycles {
		return false
	}

	if m.probabilistic {
		return m.rng.Int63n(int64(m.rate)) == 0
	}

	return (eraseCount-m.minCycles)%m.rate == 0
}

// pickFault chooses the position of a stuck-at-0 bit within a page of
// pageSize bytes. A cell that wears out loses its ability to hold a 1, so
// the fault is visible against the erased all-1 pattern.
func (m *wearModel) pickFault(pageSize uint64) (byteOff uint64, bit uint) {
	byteOff = uint64(m.rng.Int63n(int64(pageSize)))
	bit = uint(m.rng.Int63n(8))
	return byteOff, bit
}
