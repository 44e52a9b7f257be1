package trace

import "github.com/sarchlab/norsim/flash"

// Hook is a flash hook that forwards every accepted operation to a set of
// writers.
type Hook struct {
	writers []Writer
}

// NewHook creates a hook that feeds the given writers.
func NewHook(writers ...Writer) *Hook {
	return &Hook{writers: writers}
}

// Func forwards completed-operation records to the writers.
func (h *Hook) Func(ctx flash.HookCtx) {
	if ctx.Pos != flash.HookPosOpComplete {
		return
	}

	entry, ok := ctx.Item.(flash.LogEntry)
	if !ok {
		return
	}

	for _, w := range h.writers {
		w.Write(entry)
	}
}
