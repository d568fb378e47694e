package forwarder

import (
	"io"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// BufferSize is the size of a single read from the pipe.
const BufferSize = 4096

// New wraps a non-blocking pipe read end.
func New(fd int, name string) *Forwarder {
	return &Forwarder{
		fd:   fd,
		name: name,
		buf:  make([]byte, BufferSize),
	}
}

// Name is the stream name given to New, e.g. "stdout".
func (f *Forwarder) Name() string {
	return f.name
}

// Open reports whether the pipe is still open.
func (f *Forwarder) Open() bool {
	return f != nil && f.fd >= 0
}

// Drain forwards everything currently readable from the pipe to w and
// returns the number of bytes read. It stops when the read would block. On
// end-of-stream the pipe is closed and io.EOF is returned; on any other
// read error the error text is forwarded to w, the pipe is closed, and the
// error is returned. Otherwise the first failed write to w is returned as
// a *WriteError; the pipe stays open unless it also reached end-of-stream.
func (f *Forwarder) Drain(w io.Writer) (int, error) {
	total := 0
	var writeErr error

	forward := func(p []byte) {
		if _, err := w.Write(p); err != nil && writeErr == nil {
			writeErr = &WriteError{Stream: f.name, Err: err}
		}
	}

	for f.Open() {
		n, err := unix.Read(f.fd, f.buf)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return total, writeErr
		case err != nil:
			forward([]byte(err.Error()))
			f.Close()
			return total, errors.Wrapf(err, "read %s", f.name)
		case n == 0:
			f.Close()
			if writeErr != nil {
				return total, writeErr
			}
			return total, io.EOF
		}

		forward(f.buf[:n])
		total += n
	}

	return total, writeErr
}

// Close closes the pipe. Closing an already closed Forwarder is a no-op.
func (f *Forwarder) Close() error {
	if !f.Open() {
		return nil
	}

	err := unix.Close(f.fd)
	f.fd = -1

	return err
}
