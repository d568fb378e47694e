package logfile

import (
	"bytes"
	"os"
	"time"

	"github.com/pirogoeth/exmon/pkg/io/multiwritercloser"
)

// Config describes where and how the daily log file is written.
type Config struct {
	// Dir is the directory the dated log files are created in
	Dir string

	// Fname is the file name prefix; the date suffix is appended to it
	Fname string

	// BindStderr duplicates every newly opened log file onto fd 2 so that
	// anything the process writes to stderr lands in the active log
	BindStderr bool

	// Now is the clock used for rotation and line prefixes. Defaults to
	// time.Now.
	Now func() time.Time

	// OnRotate is called with the new path after every successful open
	OnRotate func(path string)
}

// Writer owns the active log file. It is not safe for concurrent use: the
// supervision loop is its only caller.
type Writer struct {
	config *Config
	now    func() time.Time

	// current log date, recorded before each open attempt
	haveDate bool
	year     int
	month    time.Month
	day      int

	invalid bool

	file *os.File
	path string

	lineStartPending bool
	buf              bytes.Buffer

	// diagnostics waiting for the child's current line to end
	held bytes.Buffer

	tee *multiwritercloser.MultiWriterCloser
}

// diagWriter writes preformatted diagnostics straight into the active
// file without line framing.
type diagWriter struct {
	w *Writer
}
