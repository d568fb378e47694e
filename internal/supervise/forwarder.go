package supervise

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pirogoeth/exmon/pkg/io/forwarder"
)

// drainPipes forwards everything currently readable on the child's pipes
// into the log. A pipe that reports end-of-stream or a read error is closed
// for good; the read error text itself has already been forwarded. Nothing
// is logged from here: a child line may still be open.
func (s *Supervisor) drainPipes() {
	for _, fwd := range []*forwarder.Forwarder{s.child.stderr, s.child.stdout} {
		if !fwd.Open() {
			continue
		}

		n, err := fwd.Drain(s.config.Log)
		if n > 0 {
			s.metrics.ForwardedBytes.WithLabelValues(fwd.Name()).Add(float64(n))
		}

		var writeErr *forwarder.WriteError

		switch {
		case err == nil, err == io.EOF:
		case errors.As(err, &writeErr):
			s.metrics.ForwardErrors.WithLabelValues(fwd.Name()).Inc()
		default:
			s.child.pipeErrs = append(s.child.pipeErrs, err)
		}
	}
}

// outputDone reports the end of the child's output, once, after both pipes
// have closed.
func (s *Supervisor) outputDone() {
	if s.child.outputEnded {
		return
	}
	s.child.outputEnded = true

	if err := s.config.Log.EndLine(); err != nil {
		s.metrics.ForwardErrors.WithLabelValues("log").Inc()
	}

	for _, err := range s.child.pipeErrs {
		s.log.WithError(err).Warnf("child output failed")
	}

	if s.child.running() {
		s.log.Debugf("%d output closed", s.child.pid)
	}
}
