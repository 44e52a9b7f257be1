package flash

import "github.com/zeebo/errs"

// Error classes returned by device operations. Wear-induced bit corruption
// is not an error; it silently alters stored data and is only observable
// through reads or the snapshot's worn flags.
var (
	// ErrInvalidConfig is returned by Builder.Build when the requested
	// parameters cannot describe a valid device.
	ErrInvalidConfig = errs.Class("flash: invalid configuration")

	// ErrOutOfBounds is returned when an access reaches beyond the device
	// capacity or describes an empty erase range.
	ErrOutOfBounds = errs.Class("flash: out of bounds")

	// ErrMisaligned is returned when an address or length violates the
	// granularity of the requested operation.
	ErrMisaligned = errs.Class("flash: misaligned")

	// ErrCrossesPageBoundary is returned when a write spans more than one
	// erase unit.
	ErrCrossesPageBoundary = errs.Class("flash: crosses page boundary")

	// ErrWriteWithoutErase is returned when a write targets a region that
	// was already written since its last erase and multiwrite is disabled.
	ErrWriteWithoutErase = errs.Class("flash: write without erase")
)
