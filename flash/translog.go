package flash

// LogLevel controls how much detail the transaction log records. The level
// is fixed for the lifetime of a device.
type LogLevel int

// Log levels in strictly increasing detail.
const (
	// LogNone records nothing.
	LogNone LogLevel = iota
	// LogMinimal records operation kind, address, length, and outcome.
	LogMinimal
	// LogFull additionally records the exact bytes read or written.
	LogFull
)

func (l LogLevel) String() string {
	switch l {
	case LogNone:
		return "none"
	case LogMinimal:
		return "minimal"
	case LogFull:
		return "full"
	}
	return "unknown"
}

// ParseLogLevel converts a level name to a LogLevel. It accepts the values
// produced by LogLevel.String.
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "none", "":
		return LogNone, nil
	case "minimal":
		return LogMinimal, nil
	case "full":
		return LogFull, nil
	}
	return LogNone, ErrInvalidConfig.New("unknown log level %q", s)
}

// OpKind identifies the kind of a device operation.
type OpKind int

// Operation kinds.
const (
	OpRead OpKind = iota
	OpWrite
	OpErase
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpErase:
		return "erase"
	}
	return "unknown"
}

// Outcome describes how an accepted operation finished.
type Outcome string

// Outcomes recorded in the transaction log. Validation failures are
// rejected before they reach the device and therefore never appear.
const (
	OutcomeSuccess           Outcome = "success"
	OutcomeWriteWithoutErase Outcome = "write_without_erase"
)

// A LogEntry records one accepted operation. Entries are immutable once
// appended.
type LogEntry struct {
	Seq     uint64  `json:"seq"`
	Kind    OpKind  `json:"kind"`
	Addr    uint64  `json:"addr"`
	Length  uint64  `json:"length"`
	Outcome Outcome `json:"outcome"`
	Tag     string  `json:"tag,omitempty"`
	Data    []byte  `json:"data,omitempty"`
}

// transactionLog is an append-only operation record. With capacity zero it
// grows without bound; otherwise it keeps the most recent entries in a
// ring. Sequence numbers are monotonic either way.
type transactionLog struct {
	level    LogLevel
	capacity int

	nextSeq uint64
	entries []LogEntry
	head    int
}

func newTransactionLog(level LogLevel, capacity int) *transactionLog {
	return &transactionLog{
		level:    level,
		capacity: capacity,
	}
}

func (l *transactionLog) append(e LogEntry) {
	e.Seq = l.nextSeq
	l.nextSeq++

	if l.capacity == 0 || len(l.entries) < l.capacity {
		l.entries = append(l.entries, e)
		return
	}

	l.entries[l.head] = e
	l.head = (l.head + 1) % l.capacity
}

func (l *transactionLog) len() int {
	return len(l.entries)
}

// copyOut returns the retained entries in sequence order. Payloads are
// deep-copied so that callers cannot alias log memory.
func (l *transactionLog) copyOut() []LogEntry {
	out := make([]LogEntry, 0, len(l.entries))
	for i := 0; i < len(l.entries); i++ {
		e := l.entries[(l.head+i)%len(l.entries)]
		if e.Data != nil {
			e.Data = append([]byte(nil), e.Data...)
		}
		out = append(out, e)
	}
	return out
}

func (l *transactionLog) clear() {
	l.entries = nil
	l.head = 0
	l.nextSeq = 0
}
