package flash

// The capability surface mirrors the tiered NOR flash abstractions that
// embedded storage code is written against: a read-only tier, a
// read/write/erase tier with single-write discipline, and a multiwrite
// tier that relaxes the discipline. All tiers are thin views over the same
// device; which ones a device supports is decided at construction.

// A Reader is the read-only capability tier.
type Reader interface {
	ReadUnit() uint64
	Capacity() uint64
	Read(offset uint64, buf []byte) error
}

// A ReadWriterEraser is the full read/write/erase capability tier. Write
// discipline follows the device configuration.
type ReadWriterEraser interface {
	Reader
	WriteUnit() uint64
	EraseUnit() uint64
	Write(offset uint64, data []byte) error
	Erase(from, to uint64) error
}

// A Multiwriter is a ReadWriterEraser that is guaranteed to accept
// repeated clearing writes per erase cycle.
type Multiwriter interface {
	ReadWriterEraser
	MultiwriteEnabled() bool
}

// readOnlyView restricts a device to the Reader tier so that consumers
// cannot be handed mutation rights by accident.
type readOnlyView struct {
	d *Device
}

func (v readOnlyView) ReadUnit() uint64 {
	return v.d.ReadUnit()
}

func (v readOnlyView) Capacity() uint64 {
	return v.d.Capacity()
}

func (v readOnlyView) Read(offset uint64, buf []byte) error {
	return v.d.Read(offset, buf)
}

// ReadOnly returns a view of the device that only exposes reads.
func (d *Device) ReadOnly() Reader {
	return readOnlyView{d}
}

// Multiwrite returns the multiwrite capability tier. It fails when the
// device was not built with multiwrite enabled.
func (d *Device) Multiwrite() (Multiwriter, error) {
	if !d.multiwrite {
		return nil, ErrInvalidConfig.New(
			"device %s was built without multiwrite", d.name)
	}
	return d, nil
}
