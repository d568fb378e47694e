package main

import (
	"reflect"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"

	"github.com/pirogoeth/exmon/initializer"
	"github.com/pirogoeth/exmon/internal/version"
)

const usageLine = "usage: exmon cmd args ..."

// errUsage is returned when no child command was given.
var errUsage = errors.New(usageLine)

type argsT struct {
	initializer.Config
}

func (argsT) Version() string {
	return version.Version
}

func (argsT) Description() string {
	return "exmon supervises a single command, logging its output to a daily rotated file and restarting it when it terminates abnormally."
}

// valuedOptions lists the option names of v's `arg` tags that take a
// value, i.e. everything that is not a boolean switch.
func valuedOptions(v interface{}) map[string]bool {
	valued := map[string]bool{}

	var walk func(t reflect.Type)
	walk = func(t reflect.Type) {
		for ix := 0; ix < t.NumField(); ix++ {
			field := t.Field(ix)
			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				walk(field.Type)
				continue
			}

			tag, ok := field.Tag.Lookup("arg")
			if !ok || tag == "-" {
				continue
			}

			kind := field.Type.Kind()
			if kind == reflect.Ptr {
				kind = field.Type.Elem().Kind()
			}
			if kind == reflect.Bool {
				continue
			}

			for _, part := range strings.Split(tag, ",") {
				if strings.HasPrefix(part, "-") {
					valued[part] = true
				}
			}
		}
	}
	walk(reflect.TypeOf(v).Elem())

	return valued
}

// splitArgs separates the supervisor's options from the child command.
// Options end at `--` or at the first argument that does not look like an
// option; everything from there on belongs to the child, verbatim. A valued
// option must carry its value as `--opt=value`, otherwise its value would
// be taken for the command.
func splitArgs(argv []string, valued map[string]bool) (opts, command []string, err error) {
	for ix, a := range argv {
		if a == "--" {
			return argv[:ix], argv[ix+1:], nil
		}

		if !strings.HasPrefix(a, "-") || a == "-" {
			return argv[:ix], argv[ix:], nil
		}

		if valued[a] {
			return nil, nil, errors.Errorf("option %s needs a value: use %s=VALUE", a, a)
		}
	}

	return argv, nil, nil
}

// parseArgs builds the configuration from argv and the environment.
// arg.ErrHelp and arg.ErrVersion are returned as-is, after p has been
// filled in so the caller can print the help text.
func parseArgs(argv []string) (*argsT, *arg.Parser, error) {
	args := &argsT{}

	p, err := arg.NewParser(arg.Config{Program: "exmon"}, args)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not build argument parser")
	}

	opts, command, err := splitArgs(argv, valuedOptions(args))
	if err != nil {
		return args, p, err
	}

	if err := p.Parse(opts); err != nil {
		return args, p, err
	}

	if len(command) == 0 {
		return args, p, errUsage
	}

	args.Command = append([]string{}, command...)

	return args, p, nil
}
