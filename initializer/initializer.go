// Package initializer wires the supervisor together: it takes the log lock,
// opens the first log file, points logrus at it, starts the optional
// helpers and then hands over to the supervision loop.
package initializer

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	reaper "github.com/ramr/go-reaper"
	"github.com/sirupsen/logrus"

	"github.com/pirogoeth/exmon/internal/supervise"
	"github.com/pirogoeth/exmon/pkg/io/multiwritercloser"
	"github.com/pirogoeth/exmon/pkg/logfile"
	"github.com/pirogoeth/exmon/pkg/logformatter"
	"github.com/pirogoeth/exmon/pkg/telemetry"
	"github.com/pirogoeth/exmon/pkg/watcher"
)

const telemetryShutdownTimeout = 5 * time.Second

// Run supervises config.Command until it exits cleanly, the abend limit is
// exceeded or ctx is cancelled. config must have passed
// ValidateAndSetDefaults. logger receives the supervisor's diagnostics; its
// formatter and output are replaced so every message lands in the log.
func Run(ctx context.Context, config *Config, logger *logrus.Logger) error {
	if len(config.Command) == 0 {
		return errors.New("command is required but not provided")
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	log := logger.WithField("stream", "init")

	if !*config.NoLock {
		lock, err := logfile.Lock(config.LogDir, config.LogFname)
		if err != nil {
			return errors.Wrapf(err, "could not lock %s", logfile.LockPath(config.LogDir, config.LogFname))
		}
		defer lock.Unlock()
	}

	reg := telemetry.NewRegistry(*config.TelemetryCollectorGolang, *config.TelemetryCollectorProcess)
	metrics := telemetry.NewMetrics(reg)

	lw := logfile.New(&logfile.Config{
		Dir:        config.LogDir,
		Fname:      config.LogFname,
		BindStderr: !*config.NoBindStderr,
		OnRotate: func(string) {
			metrics.Rotations.Inc()
		},
	})
	defer lw.Close()

	if err := lw.EnsureCurrent(); err != nil {
		return err
	}

	tees := append([]io.WriteCloser{}, config.TeeWriters...)
	if *config.Tee {
		tees = append(tees, multiwritercloser.NopCloser(os.Stdout))
	}
	lw.Tee(tees...)

	formatter, err := logformatter.Configure(config.LogFormat)
	if err != nil {
		return err
	}
	logger.SetFormatter(formatter)
	logger.SetOutput(lw.Diagnostics())

	if config.TelemetryAddress != "" {
		srv, err := telemetry.Serve(config.TelemetryAddress, reg)
		if err != nil {
			return err
		}
		log.Infof("serving telemetry on %s", srv.Addr())

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
			defer cancel()

			if err := srv.Close(shutdownCtx); err != nil {
				log.WithError(err).Warnf("telemetry server failed")
			}
		}()
	}

	if *config.Reaper {
		log.Info("Starting process reaper")
		go reaper.Reap()
	}

	var gone supervise.GoneWatcher
	if !*config.NoWatch {
		w, err := watcher.New(config.LogDir)
		if err != nil {
			log.WithError(err).Warnf("log directory will not be watched")
		} else {
			defer w.Close()
			gone = w
		}
	}

	pollInterval, err := config.PollIntervalDuration()
	if err != nil {
		return err
	}

	stopTimeout, err := config.StopTimeoutDuration()
	if err != nil {
		return err
	}

	sv := supervise.NewSupervisor(&supervise.Config{
		Command:      config.Command,
		AbendLimit:   *config.AbendLimit,
		AbendExpire:  config.AbendExpireDuration(),
		PollInterval: pollInterval,
		StopTimeout:  stopTimeout,
		Log:          lw,
		Logger:       logger,
		Metrics:      metrics,
		Watcher:      gone,
	})

	return sv.Run(ctx)
}
