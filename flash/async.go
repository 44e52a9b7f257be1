package flash

import "context"

// AsyncDevice adapts a device to context-aware calling conventions. The
// underlying work is CPU-only and completes without waiting, so the only
// meaningful cancellation semantic is cancel-before-start: the context is
// checked once, before the synchronous step, and an operation that has
// begun always runs to completion. No operation ever leaves a partially
// mutated page behind.
type AsyncDevice struct {
	d *Device
}

// Async returns a context-aware wrapper around the device.
func (d *Device) Async() *AsyncDevice {
	return &AsyncDevice{d: d}
}

// Device returns the wrapped synchronous device.
func (a *AsyncDevice) Device() *Device {
	return a.d
}

// Read behaves like Device.Read after an initial context check.
func (a *AsyncDevice) Read(ctx context.Context, offset uint64, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.d.Read(offset, buf)
}

// Write behaves like Device.Write after an initial context check.
func (a *AsyncDevice) Write(ctx context.Context, offset uint64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.d.Write(offset, data)
}

// Erase behaves like Device.Erase after an initial context check.
func (a *AsyncDevice) Erase(ctx context.Context, from, to uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.d.Erase(from, to)
}

// Snapshot behaves like Device.Snapshot after an initial context check.
func (a *AsyncDevice) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	return a.d.Snapshot(), nil
}
