package flash

import "github.com/cespare/xxhash"

// A PageRecord describes the wear state of one erase unit at capture time.
type PageRecord struct {
	Index      int    `json:"index"`
	EraseCount uint64 `json:"erase_count"`
	Worn       bool   `json:"worn"`
}

// Counters aggregates the global operation statistics of a device.
// Rejected requests never advance any counter.
type Counters struct {
	TotalReads            uint64 `json:"total_reads"`
	TotalWrites           uint64 `json:"total_writes"`
	TotalErases           uint64 `json:"total_erases"`
	TotalFailuresInjected uint64 `json:"total_failures_injected"`
	TotalOperations       uint64 `json:"total_operations"`
	BytesRead             uint64 `json:"bytes_read"`
	BytesWritten          uint64 `json:"bytes_written"`
	PagesErased           uint64 `json:"pages_erased"`
}

// A Snapshot is an immutable copy of device state and statistics. Once
// captured it is causally disconnected from the live device: later
// mutations never alter it. Snapshots are the only channel through which
// visualization and statistics consumers may observe a device.
type Snapshot struct {
	Device      string       `json:"device"`
	Pages       []PageRecord `json:"pages"`
	Counters    Counters     `json:"counters"`
	Log         []LogEntry   `json:"log,omitempty"`
	ContentHash uint64       `json:"content_hash"`
	Contents    []byte       `json:"contents,omitempty"`
}

// Snapshot captures the current device state. Capture is read-only with
// respect to the device and completes as a single non-interleavable step,
// so a snapshot never observes a partially erased or written page.
func (d *Device) Snapshot() Snapshot {
	pages := make([]PageRecord, len(d.pages))
	for i := range d.pages {
		pages[i] = PageRecord{
			Index:      i,
			EraseCount: d.pages[i].eraseCount,
			Worn:       d.pages[i].worn,
		}
	}

	return Snapshot{
		Device: d.name,
		Pages:  pages,
		Counters: Counters{
			TotalReads:            d.totalReads,
			TotalWrites:           d.totalWrites,
			TotalErases:           d.totalErases,
			TotalFailuresInjected: d.failuresInjected,
			TotalOperations:       d.taggedOps,
			BytesRead:             d.bytesRead,
			BytesWritten:          d.bytesWritten,
			PagesErased:           d.pagesErased,
		},
		Log:         d.log.copyOut(),
		ContentHash: xxhash.Sum64(d.data),
	}
}

// SnapshotWithData captures the device state including a copy of the raw
// contents.
func (d *Device) SnapshotWithData() Snapshot {
	s := d.Snapshot()
	s.Contents = append([]byte(nil), d.data...)
	return s
}
