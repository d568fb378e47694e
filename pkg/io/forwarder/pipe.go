package forwarder

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Pipe creates a close-on-exec pipe. The read end is returned as a raw,
// non-blocking descriptor; the write end is an *os.File meant to be handed
// to a child process and closed by the caller once the child has started.
func Pipe(name string) (int, *os.File, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return -1, nil, errors.Wrapf(err, "pipe %s", name)
	}

	if err := unix.SetNonblock(fds[0], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return -1, nil, errors.Wrapf(err, "set %s non-blocking", name)
	}

	return fds[0], os.NewFile(uintptr(fds[1]), "|"+name), nil
}
