package supervise

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/pirogoeth/exmon/pkg/io/forwarder"
)

// running reports whether a child process is alive or not yet reaped.
func (c *state) running() bool {
	return c.pid > 0
}

// pipesOpen reports whether either output pipe still has to be drained.
func (c *state) pipesOpen() bool {
	return c.stdout.Open() || c.stderr.Open()
}

func (c *state) closePipes() {
	if c.stdout != nil {
		c.stdout.Close()
	}

	if c.stderr != nil {
		c.stderr.Close()
	}
}

// spawn starts a new child with its stdout and stderr bound to fresh
// pipes. stdin is closed and no other descriptor is inherited: every
// descriptor the supervisor owns is close-on-exec.
func (s *Supervisor) spawn() error {
	s.child.closePipes()
	s.child = state{}

	program, err := s.config.Program()
	if err != nil {
		return err
	}

	outFd, outW, err := forwarder.Pipe("stdout")
	if err != nil {
		return err
	}

	errFd, errW, err := forwarder.Pipe("stderr")
	if err != nil {
		unix.Close(outFd)
		outW.Close()
		return err
	}

	proc, err := os.StartProcess(program, s.config.Command, &os.ProcAttr{
		Files: []*os.File{nil, outW, errW},
	})

	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()

	if err != nil {
		unix.Close(outFd)
		unix.Close(errFd)
		return errors.Wrapf(err, "could not start %s", program)
	}

	// The child is reaped with wait4 directly, so the handle is not needed.
	pid := proc.Pid
	proc.Release()

	s.child = state{
		pid:    pid,
		stdout: forwarder.New(outFd, "stdout"),
		stderr: forwarder.New(errFd, "stderr"),
	}

	s.metrics.ChildStarts.Inc()
	s.log.Infof("child start: %d", pid)

	return nil
}

// stop terminates a child that is still running: SIGTERM first, SIGKILL
// once StopTimeout has passed. Output produced meanwhile is still
// forwarded.
func (s *Supervisor) stop() {
	defer s.child.closePipes()

	if !s.child.running() {
		return
	}

	pid := s.child.pid
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		s.log.WithError(err).Warnf("could not signal %d", pid)
	}

	deadline := s.now().Add(s.config.StopTimeout)
	killed := false

	for {
		s.drainPipes()

		var ws unix.WaitStatus
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		switch {
		case err == unix.EINTR:
		case err != nil:
			s.log.WithError(err).Warnf("could not reap %d", pid)
			s.child.pid = 0
			return
		case wpid == pid:
			s.log.Infof("%d stopped, status=%d", pid, ws.ExitStatus())
			s.child.pid = 0
			return
		}

		if !killed && s.now().After(deadline) {
			s.log.Warnf("%d did not exit in %s, killing", pid, s.config.StopTimeout)
			unix.Kill(pid, unix.SIGKILL)
			killed = true
		}

		time.Sleep(s.config.PollInterval)
	}
}
