package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/pirogoeth/exmon/initializer"
	"github.com/pirogoeth/exmon/internal/supervise"
)

const (
	exitClean   = 0
	exitFailure = 1
	exitUsage   = 2
)

var log = logrus.WithField("stream", "main")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	args, p, err := parseArgs(argv)
	switch {
	case err == arg.ErrHelp:
		p.WriteHelp(os.Stdout)
		return exitClean
	case err == arg.ErrVersion:
		fmt.Fprintln(os.Stdout, args.Version())
		return exitClean
	case err == errUsage:
		fmt.Fprintln(os.Stderr, usageLine)
		return exitUsage
	case err != nil && p != nil:
		p.WriteUsage(os.Stderr)
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return exitUsage
	case err != nil:
		log.WithError(err).Errorf("Error parsing arguments")
		return exitFailure
	}

	config := &args.Config

	// Set log level according to verbosity
	if config.Verbose != nil && *config.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// Set trace if Debug is set
	if config.Debug != nil && *config.Debug {
		logrus.SetLevel(logrus.TraceLevel)
	}

	if err := config.ValidateAndSetDefaults(); err != nil {
		log.WithError(err).Errorf("Error validating configuration")
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	err = initializer.Run(ctx, config, logrus.StandardLogger())
	switch {
	case err == nil:
		return exitClean
	case errors.Is(err, supervise.ErrAbendLimit):
		log.WithError(err).Errorf("giving up")
	case errors.Is(err, context.Canceled):
		log.Infof("interrupted")
	default:
		log.WithError(err).Errorf("supervision failed")
	}

	return exitFailure
}
