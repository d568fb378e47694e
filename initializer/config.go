package initializer

import (
	"io"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/pirogoeth/exmon/pkg/logformatter"
)

const (
	defaultAbendExpire               int    = 300
	defaultAbendLimit                int    = 10
	defaultDebug                     bool   = false
	defaultLogFormat                 string = logformatter.FormatDefault
	defaultNoBindStderr              bool   = false
	defaultNoLock                    bool   = false
	defaultNoWatch                   bool   = false
	defaultPollInterval              string = "1ms"
	defaultReaper                    bool   = false
	defaultStopTimeout               string = "10s"
	defaultTee                       bool   = false
	defaultTelemetryCollectorGolang  bool   = false
	defaultTelemetryCollectorProcess bool   = false
	defaultVerbose                   bool   = false
)

// Config is the configuration for `exmon` as a whole
// and can be populated by an embedding application or populated
// with arguments from the command line and/or environment variables.
type Config struct {
	// Command is everything after the options. It is split off the command
	// line before option parsing, so the child's own flags are never
	// mistaken for ours.
	Command []string `arg:"-"`

	AbendLimit  *int   `arg:"--abend-limit,env:ABEND_LIMIT" help:"Abnormal terminations tolerated within one abend window"`
	AbendExpire *int   `arg:"--abend-expire,env:ABEND_EXPIRE" help:"Length of the abend window in seconds"`
	LogDir      string `arg:"--log-dir,env:LOG_DIR" help:"Directory the daily log files are written to"`
	LogFname    string `arg:"--log-fname,env:LOG_FNAME" help:"File name prefix of the daily log files"`

	Debug        *bool  `arg:"-D,--debug,env:EXMON_DEBUG" help:"Enable super verbose debugging output"`
	LogFormat    string `arg:"--log-format,env:EXMON_LOG_FORMAT" help:"Change the format used for supervisor messages [default, plain, json]"`
	NoBindStderr *bool  `arg:"--no-bind-stderr,env:EXMON_NO_BIND_STDERR" help:"Do not redirect the supervisor's stderr into the active log file"`
	NoLock       *bool  `arg:"--no-lock,env:EXMON_NO_LOCK" help:"Do not lock the log against other supervisors"`
	NoWatch      *bool  `arg:"--no-watch,env:EXMON_NO_WATCH" help:"Do not watch the log directory for moved or removed log files"`
	PollInterval string `arg:"--poll-interval,env:EXMON_POLL_INTERVAL" help:"Sleep between two supervision ticks"`
	Reaper       *bool  `arg:"--with-reaper,env:EXMON_REAPER" help:"Reap orphaned zombies when running as pid 1"`
	StopTimeout  string `arg:"--stop-timeout,env:EXMON_STOP_TIMEOUT" help:"How long to wait for the child after SIGTERM on shutdown"`
	Tee          *bool  `arg:"-t,--tee,env:EXMON_TEE" help:"Mirror the log to stdout"`
	Verbose      *bool  `arg:"-v,--verbose,env:EXMON_VERBOSE" help:"Enable verbose debug logging"`

	TelemetryAddress          string `arg:"--telemetry-address,env:EXMON_TELEMETRY_ADDR" help:"Address to expose Prometheus telemetry on. Disabled if blank."`
	TelemetryCollectorGolang  *bool  `arg:"--use-go-telemetry-collector,env:EXMON_TELEMETRY_COLLECTOR_GOLANG" help:"Whether the Golang telemetry collector should be started."`
	TelemetryCollectorProcess *bool  `arg:"--use-process-telemetry-collector,env:EXMON_TELEMETRY_COLLECTOR_PROCESS" help:"Whether the process telemetry collector should be started."`

	// TeeWriters allows an external embedder to capture the framed log.
	TeeWriters []io.WriteCloser `arg:"-"`
}

func boolPtr(v bool) *bool {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func defaults() *Config {
	return &Config{
		AbendExpire:               intPtr(defaultAbendExpire),
		AbendLimit:                intPtr(defaultAbendLimit),
		Debug:                     boolPtr(defaultDebug),
		LogFormat:                 defaultLogFormat,
		NoBindStderr:              boolPtr(defaultNoBindStderr),
		NoLock:                    boolPtr(defaultNoLock),
		NoWatch:                   boolPtr(defaultNoWatch),
		PollInterval:              defaultPollInterval,
		Reaper:                    boolPtr(defaultReaper),
		StopTimeout:               defaultStopTimeout,
		Tee:                       boolPtr(defaultTee),
		TelemetryCollectorGolang:  boolPtr(defaultTelemetryCollectorGolang),
		TelemetryCollectorProcess: boolPtr(defaultTelemetryCollectorProcess),
		Verbose:                   boolPtr(defaultVerbose),
	}
}

// ValidateAndSetDefaults validates the arguments set inside of the
// configuration and fills in certain slots with defaults, if the values
// are unset.
func (c *Config) ValidateAndSetDefaults() error {
	// Negative limits are treated like unset ones.
	if c.AbendLimit != nil && *c.AbendLimit < 0 {
		c.AbendLimit = nil
	}

	if c.AbendExpire != nil && *c.AbendExpire < 0 {
		c.AbendExpire = nil
	}

	// Explicit values override the defaults, including an explicit zero
	// behind a pointer.
	resolved := defaults()
	if err := mergo.Merge(resolved, c, mergo.WithOverride); err != nil {
		return errors.Wrap(err, "could not apply configuration defaults")
	}
	*c = *resolved

	if c.LogDir == "" {
		return errors.New("LOG_DIR is required but not set")
	}

	if c.LogFname == "" {
		return errors.New("LOG_FNAME is required but not set")
	}

	if _, err := logformatter.Configure(c.LogFormat); err != nil {
		return err
	}

	if _, err := c.PollIntervalDuration(); err != nil {
		return err
	}

	if _, err := c.StopTimeoutDuration(); err != nil {
		return err
	}

	log.Trace(spew.Sprintf("resolved configuration: %#v", c))

	return nil
}

// AbendExpireDuration is the abend window as a duration.
func (c *Config) AbendExpireDuration() time.Duration {
	return time.Duration(*c.AbendExpire) * time.Second
}

// PollIntervalDuration parses PollInterval.
func (c *Config) PollIntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, errors.Wrapf(err, "could not parse poll interval: `%s`", c.PollInterval)
	}

	if d <= 0 {
		return 0, errors.Errorf("poll interval must be positive: `%s`", c.PollInterval)
	}

	return d, nil
}

// StopTimeoutDuration parses StopTimeout.
func (c *Config) StopTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.StopTimeout)
	if err != nil {
		return 0, errors.Wrapf(err, "could not parse stop timeout: `%s`", c.StopTimeout)
	}

	return d, nil
}
