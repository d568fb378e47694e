// Package supervise runs a single child process, forwards its output into a
// rotated log and restarts it on abnormal termination.
//
// Everything happens on the goroutine calling Run: each tick sleeps for the
// poll interval, checks the log file, drains the child's non-blocking pipes
// and only then, once both pipes are closed, reaps the child without
// blocking. Draining first guarantees that every byte the child wrote is in
// the log before its exit status is.
package supervise

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/pirogoeth/exmon/pkg/telemetry"
)

const (
	defaultPollInterval = time.Millisecond
	defaultStopTimeout  = 10 * time.Second
)

// ErrAbendLimit is returned by Run when the child terminated abnormally
// more than AbendLimit times inside one abend window.
var ErrAbendLimit = errors.New("child abend limit exceeded")

// NewSupervisor creates a supervisor instance
func NewSupervisor(config *Config) *Supervisor {
	logger := config.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics(prometheus.NewRegistry())
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}

	if config.StopTimeout <= 0 {
		config.StopTimeout = defaultStopTimeout
	}

	return &Supervisor{
		config:  config,
		log:     logrus.NewEntry(logger),
		metrics: metrics,
		now:     now,
		budget:  newAbendBudget(config.AbendLimit, config.AbendExpire),
	}
}

// Run spawns the child and supervises it until it exits with status 0
// (nil), exhausts the abend budget (ErrAbendLimit) or ctx is cancelled
// (ctx.Err(), after the child has been stopped).
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.config.Command) == 0 {
		return errors.New("no command configured")
	}

	if cmd, err := s.config.CommandString(); err == nil {
		s.log.Debugf("supervising %s: `%s`", s.config.Name(), cmd)
	}

	if err := s.spawn(); err != nil {
		s.spawnFailed(err)
	}

	timer := time.NewTimer(s.config.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Infof("supervisor cancelled, stopping child")
			s.stop()
			return ctx.Err()
		case <-timer.C:
		}

		verdict := s.tick()
		if verdict != Continue {
			s.log.Tracef("verdict: %s", verdict)
		}

		if verdict.Done() {
			s.child.closePipes()

			if verdict == AbendLimit {
				return errors.Wrapf(ErrAbendLimit, "%d abends within %s", s.budget.count, s.config.AbendExpire)
			}

			return nil
		}

		timer.Reset(s.config.PollInterval)
	}
}

// tick performs one supervision step.
func (s *Supervisor) tick() Verdict {
	s.pollWatcher()

	if err := s.config.Log.EnsureCurrent(); err != nil {
		s.metrics.RotationErrors.Inc()
	}

	s.drainPipes()

	return s.checkLiveness()
}

// pollWatcher invalidates the active log file if it was moved or removed.
func (s *Supervisor) pollWatcher() {
	if s.config.Watcher == nil {
		return
	}

	gone, errs := s.config.Watcher.Poll()
	for _, err := range errs {
		s.log.WithError(err).Warnf("log directory watch failed")
	}

	active := s.config.Log.Path()
	for _, path := range gone {
		if path == active {
			s.log.Infof("log file %s went away, reopening", path)
			s.config.Log.Invalidate()
		}
	}
}

// checkLiveness decides what happens to the child. Nothing is checked while
// output may still be pending on either pipe.
func (s *Supervisor) checkLiveness() Verdict {
	if s.child.pipesOpen() {
		return Continue
	}

	s.outputDone()

	if s.child.running() {
		var ws unix.WaitStatus

		pid, err := unix.Wait4(s.child.pid, &ws, unix.WNOHANG, nil)
		switch {
		case err == unix.EINTR:
			return Continue
		case err == unix.ECHILD:
			// Someone else reaped it, e.g. the PID 1 reaper.
			s.log.Warnf("%d exit status unavailable", s.child.pid)
			s.metrics.ChildExits.WithLabelValues(telemetry.ExitLost).Inc()
		case err != nil:
			s.log.WithError(err).Errorf("could not wait for %d", s.child.pid)
			return Continue
		case pid == 0:
			return Continue
		case ws.Exited():
			s.log.Infof("%d exited, status=%d", pid, ws.ExitStatus())

			if ws.ExitStatus() == 0 {
				s.child.pid = 0
				s.metrics.ChildExits.WithLabelValues(telemetry.ExitClean).Inc()
				return Exited
			}

			s.metrics.ChildExits.WithLabelValues(telemetry.ExitStatus).Inc()
		case ws.Signaled():
			s.log.Infof("%d killed by signal %d", pid, int(ws.Signal()))
			s.metrics.ChildExits.WithLabelValues(telemetry.ExitSignal).Inc()
		default:
			// stopped or continued
			return Continue
		}

		s.child.pid = 0
	}

	allowed := s.budget.record(s.now())
	s.metrics.Abends.Set(float64(s.budget.count))

	if !allowed {
		s.log.Errorf("child abend %d", s.budget.count)
		return AbendLimit
	}

	if err := s.spawn(); err != nil {
		s.spawnFailed(err)
	}

	return Restart
}

func (s *Supervisor) spawnFailed(err error) {
	s.metrics.SpawnFailures.Inc()
	s.log.WithError(err).Errorf("could not start child")
}
