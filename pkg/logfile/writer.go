// Package logfile implements the supervisor's daily rotated log: dated file
// names, transparent reopening at the day boundary, and line framing that
// stamps exactly one time prefix on every line regardless of how the bytes
// arrive.
package logfile

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/pirogoeth/exmon/pkg/io/multiwritercloser"
)

var _ io.WriteCloser = (*Writer)(nil)

// MaxHeld bounds the diagnostics held back behind an open child line. Past
// it the line is ended so the diagnostics get out.
const MaxHeld = 64 * 1024

// New creates a Writer. No file is opened until EnsureCurrent is called.
func New(config *Config) *Writer {
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Writer{
		config:           config,
		now:              now,
		lineStartPending: true,
	}
}

// Tee adds outlets that receive every byte written to the log file. Tee
// outlets are closed along with the Writer.
func (w *Writer) Tee(outlets ...io.WriteCloser) {
	if len(outlets) == 0 {
		return
	}

	w.tee = multiwritercloser.New(outlets...)
}

// Path returns the path of the currently open log file, or "" if none is
// open yet.
func (w *Writer) Path() string {
	return w.path
}

// Invalidate forces the next EnsureCurrent to reopen the log file even if
// the date has not changed, e.g. after the file was moved away.
func (w *Writer) Invalidate() {
	w.invalid = true
}

// EnsureCurrent makes sure the open log file matches today's date, opening
// `<dir>/<fname>.<YYYYMMDD>` when the day has changed. The date is recorded
// before the open, so a failed open is reported once and the previous file
// stays in use until the next day (or the next Invalidate).
func (w *Writer) EnsureCurrent() error {
	now := w.now()
	y, m, d := now.Date()

	if w.haveDate && !w.invalid && y == w.year && m == w.month && d == w.day {
		return nil
	}

	w.haveDate = true
	w.year, w.month, w.day = y, m, d
	w.invalid = false

	path := Path(w.config.Dir, w.config.Fname, now)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		err = errors.Wrapf(err, "can't open %s", path)
		w.Logf("ERROR: %s", err)
		return err
	}

	if w.config.BindStderr {
		if err := unix.Dup3(int(f.Fd()), unix.Stderr, 0); err != nil {
			w.Logf("WARNING: can't bind stderr to %s: %s", path, err)
		}
	}

	prev := w.file
	w.file = f
	w.path = path

	if prev != nil {
		prev.Close()
	}

	if w.config.OnRotate != nil {
		w.config.OnRotate(path)
	}

	return nil
}

// Write is the line framing primitive. A prefix is emitted before the first
// byte of every line; a trailing partial line is written as-is and the next
// Write continues it without a second prefix. Diagnostics held back while
// the line was open follow right after its newline.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	pending := w.lineStartPending
	var held []byte
	if w.held.Len() > 0 {
		held = append(held, w.held.Bytes()...)
	}

	w.buf.Reset()
	w.buf.Grow(len(p) + len(PrefixLayout) + len(held))

	var prefix string
	start := 0

	for ix, c := range p {
		if w.lineStartPending {
			if prefix == "" {
				prefix = Prefix(w.now())
			}

			w.buf.WriteString(prefix)
			w.lineStartPending = false
		}

		if c == '\n' {
			w.buf.Write(p[start : ix+1])
			start = ix + 1
			w.lineStartPending = true

			if w.held.Len() > 0 {
				w.buf.Write(w.held.Bytes())
				w.held.Reset()
			}
		}
	}

	if start < len(p) {
		w.buf.Write(p[start:])
	}

	if _, err := w.emit(w.buf.Bytes()); err != nil {
		w.lineStartPending = pending
		w.held.Reset()
		w.held.Write(held)
		return 0, err
	}

	return len(p), nil
}

// Logf writes a single prefixed diagnostic line. It does not take part in
// line framing: while a child line is open the message is held back until
// that line ends.
func (w *Writer) Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	w.diagnostic([]byte(Prefix(w.now()) + msg))
}

// Diagnostics returns a writer for already prefixed diagnostic lines, such
// as the output of a logrus formatter. Like Logf, it never splits an open
// child line.
func (w *Writer) Diagnostics() io.Writer {
	return diagWriter{w}
}

// EndLine terminates an open child line with a newline and writes out any
// held diagnostics. It is called once the child's output has ended.
func (w *Writer) EndLine() error {
	if w.lineStartPending {
		return w.flushHeld()
	}

	if _, err := w.emit([]byte("\n")); err != nil {
		return err
	}
	w.lineStartPending = true

	return w.flushHeld()
}

// Close ends any open line, then closes the active log file and every tee
// outlet.
func (w *Writer) Close() error {
	err := w.EndLine()

	if w.file != nil {
		if closeErr := w.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		w.file = nil
	}

	if w.tee != nil {
		if teeErr := w.tee.Close(); teeErr != nil && err == nil {
			err = teeErr
		}
		w.tee = nil
	}

	return err
}

func (w *Writer) diagnostic(p []byte) (int, error) {
	if w.lineStartPending {
		return w.emit(p)
	}

	w.held.Write(p)
	if w.held.Len() > MaxHeld {
		// The child has kept its line open for too long.
		if err := w.EndLine(); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}

func (w *Writer) flushHeld() error {
	if w.held.Len() == 0 {
		return nil
	}

	_, err := w.emit(w.held.Bytes())
	w.held.Reset()

	return err
}

func (w *Writer) emit(p []byte) (int, error) {
	var sink io.Writer = os.Stderr
	if w.file != nil {
		sink = w.file
	}

	n, err := sink.Write(p)

	if w.tee != nil {
		w.tee.Write(p)
	}

	return n, err
}

func (d diagWriter) Write(p []byte) (int, error) {
	return d.w.diagnostic(p)
}
