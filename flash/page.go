package flash

// A page tracks the metadata of one erase unit. The byte contents live in
// the device-wide buffer; only wear and write-discipline state is held
// here.
type page struct {
	eraseCount uint64
	worn       bool

	// written marks the write units of this page that have been programmed
	// since the last erase. It is only consulted when multiwrite is
	// disabled.
	written []bool
}

func (p *page) clearWritten() {
	for i := range p.written {
		p.written[i] = false
	}
}

// anyWritten reports whether any write unit in [first, last] has been
// programmed since the last erase.
func (p *page) anyWritten(first, last uint64) bool {
	for u := first; u <= last; u++ {
		if p.written[u] {
			return true
		}
	}
	return false
}

func (p *page) markWritten(first, last uint64) {
	for u := first; u <= last; u++ {
		p.written[u] = true
	}
}
