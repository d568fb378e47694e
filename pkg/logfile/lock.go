package logfile

import (
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// ErrLockedElsewhere is returned by Lock if another supervisor already owns
// the log.
var ErrLockedElsewhere = errors.New("log already locked elsewhere")

// LockPath is the lock file guarding the logs named fname inside dir.
func LockPath(dir, fname string) string {
	return filepath.Join(dir, fname+".lock")
}

// Lock takes an exclusive flock on the log's lock file. The caller must
// Unlock the returned lock, or let the operating system release it on exit.
func Lock(dir, fname string) (*flock.Flock, error) {
	l := flock.New(LockPath(dir, fname))

	locked, err := l.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire lock")
	}

	if !locked {
		return nil, ErrLockedElsewhere
	}

	return l, nil
}
