package flash

// Granularity and bounds validation. Every check runs before any state is
// touched; a rejected request leaves contents, counters, wear accounting,
// and the transaction log exactly as they were.

func (d *Device) validateRead(offset, length uint64) error {
	if offset%d.readUnit != 0 {
		return ErrMisaligned.New(
			"read offset %d not a multiple of read unit %d", offset, d.readUnit)
	}
	if length%d.readUnit != 0 {
		return ErrMisaligned.New(
			"read length %d not a multiple of read unit %d", length, d.readUnit)
	}
	if offset+length > d.capacity {
		return ErrOutOfBounds.New(
			"read [%d, %d) beyond capacity %d", offset, offset+length, d.capacity)
	}
	return nil
}

func (d *Device) validateWrite(offset, length uint64) error {
	if offset%d.writeUnit != 0 {
		return ErrMisaligned.New(
			"write offset %d not a multiple of write unit %d", offset, d.writeUnit)
	}
	if length%d.writeUnit != 0 {
		return ErrMisaligned.New(
			"write length %d not a multiple of write unit %d", length, d.writeUnit)
	}
	if offset+length > d.capacity {
		return ErrOutOfBounds.New(
			"write [%d, %d) beyond capacity %d", offset, offset+length, d.capacity)
	}
	if length > 0 && offset/d.eraseUnit != (offset+length-1)/d.eraseUnit {
		return ErrCrossesPageBoundary.New(
			"write [%d, %d) spans erase units of size %d",
			offset, offset+length, d.eraseUnit)
	}
	return nil
}

func (d *Device) validateErase(from, to uint64) error {
	if from%d.eraseUnit != 0 {
		return ErrMisaligned.New(
			"erase start %d not a multiple of erase unit %d", from, d.eraseUnit)
	}
	if to%d.eraseUnit != 0 {
		return ErrMisaligned.New(
			"erase end %d not a multiple of erase unit %d", to, d.eraseUnit)
	}
	if from >= to {
		return ErrOutOfBounds.New("erase range [%d, %d) is empty", from, to)
	}
	if to > d.capacity {
		return ErrOutOfBounds.New(
			"erase [%d, %d) beyond capacity %d", from, to, d.capacity)
	}
	return nil
}
