package flash

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// mapBackingFile maps the device contents onto a file. A file that did not
// exist, or whose size does not match the device capacity, is resized and
// initialized to the erased pattern; an existing image of the right size is
// kept as-is so a previous session's contents carry over.
func (d *Device) mapBackingFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return ErrInvalidConfig.Wrap(err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return ErrInvalidConfig.Wrap(err)
	}

	fresh := fi.Size() != int64(d.capacity)
	if fresh {
		if err := f.Truncate(int64(d.capacity)); err != nil {
			f.Close()
			return ErrInvalidConfig.Wrap(err)
		}
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return ErrInvalidConfig.Wrap(err)
	}

	if fresh {
		for i := range m {
			m[i] = 0xFF
		}
	}

	d.file = f
	d.mapped = m
	d.data = m

	return nil
}

// Flush writes a file-backed device's contents out to disk. It is a no-op
// for purely in-memory devices.
func (d *Device) Flush() error {
	if d.mapped == nil {
		return nil
	}
	return d.mapped.Flush()
}
