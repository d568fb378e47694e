package supervise

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pirogoeth/exmon/pkg/io/forwarder"
	"github.com/pirogoeth/exmon/pkg/telemetry"
)

// LogWriter is the daily rotated log the child's output is framed into.
type LogWriter interface {
	io.Writer

	// EnsureCurrent reopens the log file when the day has changed
	EnsureCurrent() error

	// Invalidate forces the next EnsureCurrent to reopen the log file
	Invalidate()

	// Path is the currently open log file
	Path() string

	// EndLine terminates an unfinished child line once its output is over
	EndLine() error
}

// GoneWatcher reports files that vanished from the log directory.
type GoneWatcher interface {
	Poll() ([]string, []error)
}

// Config holds the configuration for the supervisor
type Config struct {
	// Command is the command including executable name/path and arguments
	// that should be spawned. It is passed to the child verbatim as argv.
	Command []string

	// AbendLimit is the number of abnormal terminations tolerated inside
	// one abend window. One more gives up supervision.
	AbendLimit int

	// AbendExpire is the length of an abend window
	AbendExpire time.Duration

	// PollInterval is the sleep between two supervision ticks
	PollInterval time.Duration

	// StopTimeout bounds how long a cancelled supervisor waits for the
	// child to exit after SIGTERM before sending SIGKILL
	StopTimeout time.Duration

	// Log receives the child's stdout and stderr
	Log LogWriter

	// Logger receives the supervisor's own diagnostics. Defaults to the
	// logrus standard logger.
	Logger *logrus.Logger

	// Metrics is optional; a private registry is used when nil
	Metrics *telemetry.Metrics

	// Watcher is optional; when set, removal of the active log file
	// invalidates it
	Watcher GoneWatcher

	// Now is the clock driving the abend window. Defaults to time.Now.
	Now func() time.Time
}

// Supervisor runs one child, restarting it on abnormal termination until
// the abend budget is exhausted or the child exits cleanly.
type Supervisor struct {
	config  *Config
	log     *logrus.Entry
	metrics *telemetry.Metrics
	now     func() time.Time

	child  state
	budget abendBudget
}

// state is the running child: its pid (0 if none) and its output pipes.
// The child is never reaped while either pipe is still open.
type state struct {
	pid    int
	stdout *forwarder.Forwarder
	stderr *forwarder.Forwarder

	// outputEnded is set once both pipes are closed and reported
	outputEnded bool

	// pipeErrs are read errors seen while draining, reported along with
	// the end of output
	pipeErrs []error
}

// abendBudget counts abnormal terminations inside a sliding window that
// starts at the first abend and expires after `expire`.
type abendBudget struct {
	limit       int
	expire      time.Duration
	windowStart time.Time
	count       int
}
