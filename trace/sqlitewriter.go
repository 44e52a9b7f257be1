package trace

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/norsim/flash"
)

// SQLiteWriter stores transaction records in a SQLite database.
type SQLiteWriter struct {
	*sql.DB
	statement *sql.Stmt

	dbName    string
	entries   []flash.LogEntry
	batchSize int
}

// NewSQLiteWriter creates a new SQLiteWriter. With an empty path, a unique
// database name is generated.
func NewSQLiteWriter(path string) *SQLiteWriter {
	w := &SQLiteWriter{
		dbName:    path,
		batchSize: 100000,
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// Init establishes a connection to the database and creates the trace
// table.
func (w *SQLiteWriter) Init() {
	if w.dbName == "" {
		w.dbName = "norsim_trace_" + xid.New().String()
	}

	filename := w.dbName + ".sqlite3"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}
	w.DB = db

	w.mustExecute(`
		CREATE TABLE trace (
			seq INTEGER,
			kind TEXT,
			addr INTEGER,
			length INTEGER,
			outcome TEXT,
			tag TEXT,
			data TEXT
		);
	`)

	stmt, err := w.Prepare(
		"INSERT INTO trace VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		panic(err)
	}
	w.statement = stmt
}

// Write buffers one entry, flushing when the batch is full.
func (w *SQLiteWriter) Write(entry flash.LogEntry) {
	w.entries = append(w.entries, entry)
	if len(w.entries) >= w.batchSize {
		w.Flush()
	}
}

// Flush writes all the buffered entries to the database.
func (w *SQLiteWriter) Flush() {
	if len(w.entries) == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for _, e := range w.entries {
		_, err := w.statement.Exec(
			e.Seq,
			e.Kind.String(),
			e.Addr,
			e.Length,
			string(e.Outcome),
			e.Tag,
			fmt.Sprintf("%x", e.Data),
		)
		if err != nil {
			panic(err)
		}
	}

	w.entries = nil
}

func (w *SQLiteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}
