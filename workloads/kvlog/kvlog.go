// Package kvlog implements an append-only key-value store on a simulated
// flash device. Writes append records to a log, removals append
// tombstones, and a RAM index maps each live key to its latest record.
// When the log runs out of space the live entries are compacted into a
// freshly erased device.
package kvlog

import (
	"encoding/binary"
	"sort"

	"github.com/zeebo/errs"

	"github.com/sarchlab/norsim/flash"
)

var (
	// ErrStoreFull is returned when an append does not fit even after
	// compaction.
	ErrStoreFull = errs.Class("kvlog: full")

	// ErrRecordTooLarge is returned when a record does not fit in a
	// single page, or a key or value exceeds the length field.
	ErrRecordTooLarge = errs.Class("kvlog: record too large")

	// ErrCorruptRecord is returned when a stored record cannot be
	// decoded.
	ErrCorruptRecord = errs.Class("kvlog: corrupt record")
)

const headerSize = 4

// unwrittenKeyLen is what a record header reads as in erased space.
// Lengths of 0xffff are therefore reserved; a value length of
// tombstoneValLen marks a removal record.
const (
	unwrittenKeyLen = 0xffff
	tombstoneValLen = 0xfffe
)

// Store is an append-only key-value log over an entire flash device.
type Store struct {
	device *flash.Device

	capacity  uint64
	align     uint64
	readUnit  uint64
	eraseUnit uint64

	tail  uint64
	index map[string]uint64
}

// NewStore opens a key-value log on the device. Any records already on
// the device, for example from a backing file of an earlier session, are
// scanned to rebuild the index.
func NewStore(d *flash.Device) (*Store, error) {
	align := d.WriteUnit()
	if d.EraseUnit() < align+headerSize {
		return nil, ErrRecordTooLarge.New(
			"erase unit %d cannot hold any record", d.EraseUnit())
	}

	s := &Store{
		device:    d,
		capacity:  d.Capacity(),
		align:     align,
		readUnit:  d.ReadUnit(),
		eraseUnit: d.EraseUnit(),
		index:     make(map[string]uint64),
	}

	if err := s.recover(); err != nil {
		return nil, err
	}

	return s, nil
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	return len(s.index)
}

// Store writes a key-value pair. An existing value for the key is
// superseded by the new record.
func (s *Store) Store(key, value []byte) error {
	if len(key) >= unwrittenKeyLen || len(value) >= tombstoneValLen {
		return ErrRecordTooLarge.New(
			"key of %d and value of %d bytes cannot be encoded",
			len(key), len(value))
	}

	record := encodeRecord(key, value, s.align)
	if uint64(len(record)) > s.eraseUnit {
		return ErrRecordTooLarge.New(
			"record of %d bytes exceeds the %d-byte page",
			len(record), s.eraseUnit)
	}

	pos, err := s.append(record)
	if err != nil {
		return err
	}

	s.index[string(key)] = pos

	return nil
}

// Fetch returns the latest value stored for the key. The second return
// value is false if the key is not present.
func (s *Store) Fetch(key []byte) ([]byte, bool, error) {
	pos, ok := s.index[string(key)]
	if !ok {
		return nil, false, nil
	}

	rec, _, err := s.readRecord(pos)
	if err != nil {
		return nil, false, err
	}

	return rec.value, true, nil
}

// Remove deletes a key by appending a tombstone record. Removing an
// absent key is a no-op.
func (s *Store) Remove(key []byte) error {
	if _, ok := s.index[string(key)]; !ok {
		return nil
	}

	record := encodeTombstone(key, s.align)
	if _, err := s.append(record); err != nil {
		return err
	}

	delete(s.index, string(key))

	return nil
}

// Compact rewrites the live entries into a freshly erased device,
// reclaiming the space held by superseded records and tombstones.
func (s *Store) Compact() error {
	keys := make([]string, 0, len(s.index))
	for k := range s.index {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string][]byte, len(keys))
	for _, k := range keys {
		rec, _, err := s.readRecord(s.index[k])
		if err != nil {
			return err
		}

		values[k] = rec.value
	}

	if err := s.device.Erase(0, s.capacity); err != nil {
		return err
	}

	s.tail = 0
	s.index = make(map[string]uint64, len(keys))

	for _, k := range keys {
		record := encodeRecord([]byte(k), values[k], s.align)

		pos, err := s.appendRaw(record)
		if err != nil {
			return err
		}

		s.index[k] = pos
	}

	return nil
}

// append writes a record at the tail, compacting once if the log is out
// of space.
func (s *Store) append(record []byte) (uint64, error) {
	pos, err := s.appendRaw(record)
	if err == nil {
		return pos, nil
	}
	if !ErrStoreFull.Has(err) {
		return 0, err
	}

	if err := s.Compact(); err != nil {
		return 0, err
	}

	return s.appendRaw(record)
}

func (s *Store) appendRaw(record []byte) (uint64, error) {
	pos := s.tail
	if rem := s.eraseUnit - pos%s.eraseUnit; rem < uint64(len(record)) {
		pos += rem
	}

	if pos+uint64(len(record)) > s.capacity {
		return 0, ErrStoreFull.New(
			"%d bytes do not fit in the remaining log space", len(record))
	}

	if err := s.device.Write(pos, record); err != nil {
		return 0, err
	}

	s.tail = pos + uint64(len(record))

	return pos, nil
}

// recover scans the log from the start and rebuilds the index. A header
// reading as erased at a page start marks the end of the log; elsewhere
// it marks a skipped page tail.
func (s *Store) recover() error {
	pos := uint64(0)

	for pos < s.capacity {
		rem := s.eraseUnit - pos%s.eraseUnit
		if rem < roundUp(headerSize, s.readUnit) {
			pos += rem
			continue
		}

		rec, ok, err := s.readRecord(pos)
		if err != nil {
			return err
		}

		if !ok {
			if pos%s.eraseUnit == 0 {
				break
			}

			pos += rem

			continue
		}

		if rec.tombstone {
			delete(s.index, string(rec.key))
		} else {
			s.index[string(rec.key)] = pos
		}

		pos += rec.size
	}

	s.tail = pos

	return nil
}

// record is a decoded on-device record.
type record struct {
	key       []byte
	value     []byte
	size      uint64
	tombstone bool
}

// readRecord decodes the record at pos. The second return value is false
// if the space at pos is unwritten.
func (s *Store) readRecord(pos uint64) (record, bool, error) {
	header := make([]byte, roundUp(headerSize, s.readUnit))
	if err := s.device.Read(pos, header); err != nil {
		return record{}, false, err
	}

	keyLen := uint64(binary.LittleEndian.Uint16(header[0:2]))
	valLen := uint64(binary.LittleEndian.Uint16(header[2:4]))

	if keyLen == unwrittenKeyLen {
		return record{}, false, nil
	}

	tombstone := valLen == tombstoneValLen
	if tombstone {
		valLen = 0
	}

	total := roundUp(headerSize+keyLen+valLen, s.align)
	if total > s.eraseUnit-pos%s.eraseUnit {
		return record{}, false, ErrCorruptRecord.New(
			"record at 0x%x crosses a page boundary", pos)
	}

	raw := make([]byte, total)
	if err := s.device.Read(pos, raw); err != nil {
		return record{}, false, err
	}

	return record{
		key:       raw[headerSize : headerSize+keyLen],
		value:     raw[headerSize+keyLen : headerSize+keyLen+valLen],
		size:      total,
		tombstone: tombstone,
	}, true, nil
}

func encodeRecord(key, value []byte, align uint64) []byte {
	total := roundUp(headerSize+uint64(len(key))+uint64(len(value)), align)

	record := make([]byte, total)
	binary.LittleEndian.PutUint16(record[0:2], uint16(len(key)))
	binary.LittleEndian.PutUint16(record[2:4], uint16(len(value)))
	copy(record[headerSize:], key)
	copy(record[headerSize+len(key):], value)
	for i := headerSize + len(key) + len(value); i < len(record); i++ {
		record[i] = 0xff
	}

	return record
}

func encodeTombstone(key []byte, align uint64) []byte {
	record := encodeRecord(key, nil, align)
	binary.LittleEndian.PutUint16(record[2:4], tombstoneValLen)

	return record
}

func roundUp(n, unit uint64) uint64 {
	return (n + unit - 1) / unit * unit
}
