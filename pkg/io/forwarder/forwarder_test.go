package forwarder

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type failingWriter struct {
	calls int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func TestForwarderDrain(t *testing.T) {
	testPayload := "Hello world!"

	rFd, wChild, err := Pipe("stdout")
	if err != nil {
		t.Fatalf("error while creating test pipe: %s", err)
	}

	fwd := New(rFd, "stdout")
	defer fwd.Close()

	if _, err := wChild.Write([]byte(testPayload)); err != nil {
		t.Errorf("error while writing test data to pipe: %s", err)
	}

	buf := &bytes.Buffer{}

	count, err := fwd.Drain(buf)
	if err != nil {
		t.Errorf("unexpected error draining open pipe: %s", err)
	}

	if count != len(testPayload) {
		t.Errorf("read count mismatch: expected %d, got %d", len(testPayload), count)
	}

	if buf.String() != testPayload {
		t.Errorf("read payload did not match test payload: `%s` != `%s`", buf.String(), testPayload)
	}

	if !fwd.Open() {
		t.Errorf("pipe closed although the writer is still open")
	}

	// Nothing left to read: the drain must return without blocking.
	if count, err := fwd.Drain(buf); count != 0 || err != nil {
		t.Errorf("expected empty drain, got count=%d err=%v", count, err)
	}

	if err := wChild.Close(); err != nil {
		t.Errorf("error while closing test write pipe: %s", err)
	}

	if _, err := fwd.Drain(buf); err != io.EOF {
		t.Errorf("expected io.EOF after writer closed, got %v", err)
	}

	if fwd.Open() {
		t.Errorf("pipe still open after end-of-stream")
	}
}

func TestForwarderDrainsLargePayload(t *testing.T) {
	rFd, wChild, err := Pipe("stderr")
	if err != nil {
		t.Fatalf("error while creating test pipe: %s", err)
	}

	fwd := New(rFd, "stderr")
	defer fwd.Close()

	// Larger than a single read, smaller than the default pipe capacity.
	payload := bytes.Repeat([]byte("0123456789abcdef"), 3*BufferSize/16+7)
	if _, err := wChild.Write(payload); err != nil {
		t.Fatalf("error while writing test data to pipe: %s", err)
	}
	wChild.Close()

	buf := &bytes.Buffer{}
	count, err := fwd.Drain(buf)
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}

	if count != len(payload) || !bytes.Equal(buf.Bytes(), payload) {
		t.Errorf("payload mismatch: expected %d bytes, got %d", len(payload), count)
	}
}

func TestClosedForwarderIsInert(t *testing.T) {
	rFd, wChild, err := Pipe("stdout")
	if err != nil {
		t.Fatalf("error while creating test pipe: %s", err)
	}
	defer wChild.Close()

	fwd := New(rFd, "stdout")
	if err := fwd.Close(); err != nil {
		t.Errorf("unexpected close error: %s", err)
	}

	if err := fwd.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %s", err)
	}

	if count, err := fwd.Drain(&bytes.Buffer{}); count != 0 || err != nil {
		t.Errorf("expected closed drain to do nothing, got count=%d err=%v", count, err)
	}
}

func TestForwarderReadError(t *testing.T) {
	rFd, wChild, err := Pipe("stdout")
	if err != nil {
		t.Fatalf("error while creating test pipe: %s", err)
	}
	defer wChild.Close()

	fwd := New(rFd, "stdout")
	defer fwd.Close()

	// Pull the descriptor out from under the forwarder.
	if err := unix.Close(rFd); err != nil {
		t.Fatalf("error while closing read end: %s", err)
	}

	buf := &bytes.Buffer{}
	count, err := fwd.Drain(buf)

	if count != 0 {
		t.Errorf("expected nothing read, got %d", count)
	}

	if !errors.Is(err, unix.EBADF) {
		t.Errorf("expected an error wrapping EBADF, got %v", err)
	}

	if !strings.Contains(buf.String(), "bad file descriptor") {
		t.Errorf("expected the read error in the output, got `%s`", buf.String())
	}

	if fwd.Open() {
		t.Errorf("pipe still open after a read error")
	}
}

func TestForwarderWriteError(t *testing.T) {
	rFd, wChild, err := Pipe("stderr")
	if err != nil {
		t.Fatalf("error while creating test pipe: %s", err)
	}
	defer wChild.Close()

	fwd := New(rFd, "stderr")
	defer fwd.Close()

	if _, err := wChild.Write([]byte("lost")); err != nil {
		t.Fatalf("error while writing test data to pipe: %s", err)
	}

	w := &failingWriter{}
	count, err := fwd.Drain(w)

	if count != len("lost") {
		t.Errorf("expected %d bytes read, got %d", len("lost"), count)
	}

	var writeErr *WriteError
	if !errors.As(err, &writeErr) || writeErr.Stream != "stderr" {
		t.Errorf("expected a WriteError for stderr, got %v", err)
	}

	if !fwd.Open() {
		t.Errorf("pipe closed although only the destination failed")
	}

	if w.calls != 1 {
		t.Errorf("expected one write attempt, got %d", w.calls)
	}
}
