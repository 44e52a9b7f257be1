// Package flash provides a deterministic in-memory NOR flash simulator.
//
// A Device models a byte-addressable, page-erasable flash with the physical
// constraints of real NOR parts: reads, writes, and erases are granularity
// checked, writes can only clear bits, a region can only be programmed once
// per erase cycle unless multiwrite is enabled, and pages wear out after a
// configurable number of erase cycles by developing stuck bits. All
// operations are logically instantaneous and the whole engine is a
// single-owner state machine, which makes storage algorithms testable
// without hardware.
//
// Devices are created with a Builder. Operation activity can be recorded in
// a transaction log, observed through hooks, and exported as immutable
// snapshots.
package flash

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// A Device is a simulated NOR flash. It is not safe for concurrent use;
// one logical caller owns the device at a time.
type Device struct {
	*HookableBase

	name       string
	capacity   uint64
	readUnit   uint64
	writeUnit  uint64
	eraseUnit  uint64
	multiwrite bool

	data      []byte
	stuckZero []byte // bits stuck at 0, allocated on first failure
	pages     []page
	wear      *wearModel
	log       *transactionLog

	currentTag string
	taggedOps  uint64

	totalReads       uint64
	totalWrites      uint64
	totalErases      uint64
	bytesRead        uint64
	bytesWritten     uint64
	pagesErased      uint64
	failuresInjected uint64

	file   *os.File
	mapped mmap.MMap
}

// Name returns the name of the device.
func (d *Device) Name() string {
	return d.name
}

// Capacity returns the device size in bytes.
func (d *Device) Capacity() uint64 {
	return d.capacity
}

// ReadUnit returns the read alignment in bytes.
func (d *Device) ReadUnit() uint64 {
	return d.readUnit
}

// WriteUnit returns the write alignment in bytes.
func (d *Device) WriteUnit() uint64 {
	return d.writeUnit
}

// EraseUnit returns the erase unit (page) size in bytes.
func (d *Device) EraseUnit() uint64 {
	return d.eraseUnit
}

// PageCount returns the number of erase units in the device.
func (d *Device) PageCount() int {
	return len(d.pages)
}

// MultiwriteEnabled reports whether repeated clearing writes per erase
// cycle are allowed.
func (d *Device) MultiwriteEnabled() bool {
	return d.multiwrite
}

// LogLevel returns the transaction log verbosity the device was built with.
func (d *Device) LogLevel() LogLevel {
	return d.log.level
}

// StartOperation tags subsequent transaction log entries with a high-level
// operation name, so that storage activity can be correlated with the
// workload actions that caused it.
func (d *Device) StartOperation(tag string) {
	d.currentTag = tag
	d.taggedOps++
}

// TotalOperations returns the number of times StartOperation was called.
func (d *Device) TotalOperations() uint64 {
	return d.taggedOps
}

// Read copies len(buf) bytes starting at offset into buf. The offset and
// length must be multiples of the read unit. Stuck bits injected by wear
// are returned as stored, without error.
func (d *Device) Read(offset uint64, buf []byte) error {
	length := uint64(len(buf))
	if err := d.validateRead(offset, length); err != nil {
		return err
	}

	copy(buf, d.data[offset:offset+length])

	d.totalReads++
	d.bytesRead += length
	d.record(OpRead, offset, length, OutcomeSuccess, buf)

	return nil
}

// Write programs len(data) bytes starting at offset. The offset and length
// must be multiples of the write unit and must not cross an erase unit
// boundary. Programming can only clear bits: each stored byte becomes the
// AND of its previous value and the new byte. With multiwrite disabled, a
// region may only be programmed once per erase cycle.
func (d *Device) Write(offset uint64, data []byte) error {
	length := uint64(len(data))
	if err := d.validateWrite(offset, length); err != nil {
		return err
	}

	if length == 0 {
		d.totalWrites++
		d.record(OpWrite, offset, 0, OutcomeSuccess, nil)
		return nil
	}

	pageIdx := int(offset / d.eraseUnit)
	firstUnit := (offset % d.eraseUnit) / d.writeUnit
	lastUnit := ((offset + length - 1) % d.eraseUnit) / d.writeUnit

	if !d.multiwrite {
		if d.pages[pageIdx].anyWritten(firstUnit, lastUnit) {
			d.record(OpWrite, offset, length, OutcomeWriteWithoutErase, nil)
			return ErrWriteWithoutErase.New(
				"region [%d, %d) already written since last erase",
				offset, offset+length)
		}
		d.pages[pageIdx].markWritten(firstUnit, lastUnit)
	}

	for i := uint64(0); i < length; i++ {
		d.data[offset+i] &= data[i]
	}
	d.applyStuckBits(offset, offset+length)

	d.totalWrites++
	d.bytesWritten += length
	d.record(OpWrite, offset, length, OutcomeSuccess, data)

	return nil
}

// Erase resets every erase unit in [from, to) to all-1 bits and increments
// each covered page's erase count by one. Erasing cannot fail once
// validated, but it is the point where wear-induced stuck bits are
// injected.
func (d *Device) Erase(from, to uint64) error {
	if err := d.validateErase(from, to); err != nil {
		return err
	}

	for p := from / d.eraseUnit; p < to/d.eraseUnit; p++ {
		d.erasePage(int(p))
	}

	d.totalErases++
	d.pagesErased += (to - from) / d.eraseUnit
	d.record(OpErase, from, to-from, OutcomeSuccess, nil)

	return nil
}

func (d *Device) erasePage(idx int) {
	pg := &d.pages[idx]
	pg.eraseCount++
	pg.clearWritten()

	start := uint64(idx) * d.eraseUnit
	end := start + d.eraseUnit
	for i := start; i < end; i++ {
		d.data[i] = 0xFF
	}

	if d.wear.shouldInject(pg.eraseCount) {
		d.injectFault(idx)
	}
	d.applyStuckBits(start, end)
}

// injectFault sticks one pseudo-randomly chosen bit of the page at 0. The
// fault is permanent: the mask is re-applied on every later write and
// erase, so the same cell keeps failing at the same position.
func (d *Device) injectFault(idx int) {
	if d.stuckZero == nil {
		d.stuckZero = make([]byte, d.capacity)
	}

	byteOff, bit := d.wear.pickFault(d.eraseUnit)
	globalOff := uint64(idx)*d.eraseUnit + byteOff
	d.stuckZero[globalOff] |= 1 << bit

	d.pages[idx].worn = true
	d.failuresInjected++
}

func (d *Device) applyStuckBits(from, to uint64) {
	if d.stuckZero == nil {
		return
	}
	for i := from; i < to; i++ {
		d.data[i] &^= d.stuckZero[i]
	}
}

// record appends an entry to the transaction log and notifies hooks.
// Payload bytes are only retained at LogFull.
func (d *Device) record(
	kind OpKind,
	addr, length uint64,
	outcome Outcome,
	payload []byte,
) {
	if d.log.level == LogNone && d.NumHooks() == 0 {
		return
	}

	entry := LogEntry{
		Kind:    kind,
		Addr:    addr,
		Length:  length,
		Outcome: outcome,
		Tag:     d.currentTag,
	}
	if d.log.level == LogFull && payload != nil {
		entry.Data = append([]byte(nil), payload...)
	}

	if d.log.level != LogNone {
		entry.Seq = d.log.nextSeq
		d.log.append(entry)
	}

	if d.NumHooks() > 0 {
		d.InvokeHook(HookCtx{
			Domain: d,
			Pos:    HookPosOpComplete,
			Item:   entry,
		})
	}
}

// LogLen returns the number of entries currently retained in the
// transaction log.
func (d *Device) LogLen() int {
	return d.log.len()
}

// Reset erases all data, statistics, and injected failures, returning the
// device to its freshly-built state.
func (d *Device) Reset() {
	for i := range d.data {
		d.data[i] = 0xFF
	}
	for i := range d.pages {
		d.pages[i].clearWritten()
	}
	d.ResetStats()
	d.ResetFailures()
}

// ResetStats clears the global counters, the operation tag, and the
// transaction log. Device contents and wear state are untouched.
func (d *Device) ResetStats() {
	d.totalReads = 0
	d.totalWrites = 0
	d.totalErases = 0
	d.bytesRead = 0
	d.bytesWritten = 0
	d.pagesErased = 0
	d.failuresInjected = 0
	d.taggedOps = 0
	d.currentTag = ""
	d.log.clear()
}

// ResetFailures removes all injected stuck bits and resets per-page erase
// counts and worn flags.
func (d *Device) ResetFailures() {
	d.stuckZero = nil
	for i := range d.pages {
		d.pages[i].eraseCount = 0
		d.pages[i].worn = false
	}
}

// Close releases the backing file mapping, if any. Devices without a
// backing file need not be closed.
func (d *Device) Close() error {
	if d.mapped == nil {
		return nil
	}

	if err := d.mapped.Unmap(); err != nil {
		return err
	}
	d.mapped = nil
	d.data = nil

	err := d.file.Close()
	d.file = nil
	return err
}
