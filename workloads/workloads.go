// Package workloads defines the operation tags shared by the storage
// workloads that drive simulated flash devices.
package workloads

import "github.com/sarchlab/norsim/flash"

// Operation tags passed to Device.StartOperation so that transaction log
// entries can be attributed to the workload action that caused them.
const (
	OpQueuePush = "Push"
	OpQueuePop  = "Pop"
	OpMapStore  = "Store"
	OpMapRemove = "Remove"
	OpMapFetch  = "Fetch"
)

// Hook is called by workload drivers after each high-level operation.
// Returning false stops the driver early.
type Hook func(d *flash.Device) bool
