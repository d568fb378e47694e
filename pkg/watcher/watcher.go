// Package watcher notices log files being moved or removed from under the
// supervisor, e.g. by an external logrotate, so the active file can be
// reopened without waiting for the next day.
package watcher

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const backlog = 64

// Watcher watches a log directory. The background goroutine only ever
// talks to the owner through buffered channels; Poll collects what it saw.
type Watcher struct {
	fsw  *fsnotify.Watcher
	gone chan string
	errs chan error
	done chan struct{}
}

// New starts watching dir for removed and renamed files.
func New(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "could not create fsnotify watcher")
	}

	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "could not watch `%s`", dir)
	}

	w := &Watcher{
		fsw:  fsw,
		gone: make(chan string, backlog),
		errs: make(chan error, backlog),
		done: make(chan struct{}),
	}

	go w.run()

	return w, nil
}

// Poll returns, without blocking, the paths that disappeared and the watch
// errors seen since the previous call.
func (w *Watcher) Poll() ([]string, []error) {
	var gone []string
	var errs []error

	for {
		select {
		case name := <-w.gone:
			gone = append(gone, name)
		case err := <-w.errs:
			errs = append(errs, err)
		default:
			return gone, errs
		}
	}
}

// Close stops the watch and waits for the background goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done

	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// A full backlog means the owner has not polled for a long
			// time; one pending notice per file is all it needs.
			select {
			case w.gone <- filepath.Clean(ev.Name):
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			select {
			case w.errs <- err:
			default:
			}
		}
	}
}
