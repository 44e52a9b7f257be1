// Package trace exports flash transaction records to external sinks. The
// writers mirror the device's transaction log entry for entry; they attach
// to a device through a Hook and never feed back into it.
package trace

import "github.com/sarchlab/norsim/flash"

// A Writer can persist transaction log entries.
type Writer interface {
	// Init prepares the backing sink.
	Init()

	// Write buffers one entry for persisting.
	Write(entry flash.LogEntry)

	// Flush persists all buffered entries.
	Flush()
}
