package trace

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/norsim/flash"
)

// CSVWriter stores transaction records in a CSV file.
type CSVWriter struct {
	path string
	file *os.File

	entries    []flash.LogEntry
	bufferSize int
}

// NewCSVWriter creates a new CSVWriter. With an empty path, a unique file
// name is generated.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Init creates the trace CSV file. It refuses to overwrite an existing
// file.
func (w *CSVWriter) Init() {
	if w.path == "" {
		w.path = "norsim_trace_" + xid.New().String()
	}

	filename := w.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	w.file = file

	fmt.Fprintf(file, "Seq, Kind, Addr, Length, Outcome, Tag\n")

	atexit.Register(func() {
		w.Flush()
		err := w.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// Write buffers one entry, flushing when the buffer is full.
func (w *CSVWriter) Write(entry flash.LogEntry) {
	w.entries = append(w.entries, entry)
	if len(w.entries) >= w.bufferSize {
		w.Flush()
	}
}

// Flush writes all buffered entries to the file.
func (w *CSVWriter) Flush() {
	for _, e := range w.entries {
		fmt.Fprintf(w.file, "%d, %s, %d, %d, %s, %s\n",
			e.Seq, e.Kind, e.Addr, e.Length, e.Outcome, e.Tag)
	}
	w.entries = nil
}
