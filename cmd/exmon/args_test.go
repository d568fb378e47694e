package main

import (
	"testing"

	"github.com/alexflint/go-arg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitArgs(t *testing.T) {
	cases := []struct {
		name    string
		argv    []string
		opts    []string
		command []string
	}{
		{"empty", nil, nil, nil},
		{"command only", []string{"sleep", "1"}, []string{}, []string{"sleep", "1"}},
		{"options then command", []string{"-v", "--log-dir=/tmp", "myd", "-x"}, []string{"-v", "--log-dir=/tmp"}, []string{"myd", "-x"}},
		{"double dash", []string{"-t", "--", "-weird", "--flag"}, []string{"-t"}, []string{"-weird", "--flag"}},
		{"only options", []string{"-v", "-t"}, []string{"-v", "-t"}, nil},
		{"child double dash kept", []string{"grep", "--", "-e"}, []string{}, []string{"grep", "--", "-e"}},
	}

	valued := valuedOptions(&argsT{})

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts, command, err := splitArgs(tc.argv, valued)
			require.NoError(t, err)
			assert.Equal(t, len(tc.opts), len(opts))
			if len(tc.opts) > 0 {
				assert.Equal(t, tc.opts, opts)
			}
			assert.Equal(t, tc.command, command)
		})
	}
}

func TestParseArgs(t *testing.T) {
	args, _, err := parseArgs([]string{
		"--log-dir=/var/log/myd",
		"--log-fname=myd.log",
		"--abend-limit=0",
		"-v",
		"/usr/sbin/myd", "--foreground", "-v",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/usr/sbin/myd", "--foreground", "-v"}, args.Command)
	assert.Equal(t, "/var/log/myd", args.LogDir)
	assert.Equal(t, "myd.log", args.LogFname)
	require.NotNil(t, args.AbendLimit)
	assert.Equal(t, 0, *args.AbendLimit)
	require.NotNil(t, args.Verbose)
	assert.True(t, *args.Verbose)
}

func TestParseArgsFromEnvironment(t *testing.T) {
	t.Setenv("ABEND_LIMIT", "3")
	t.Setenv("ABEND_EXPIRE", "60")
	t.Setenv("LOG_DIR", "/var/log/myd")
	t.Setenv("LOG_FNAME", "myd.log")

	args, _, err := parseArgs([]string{"myd"})
	require.NoError(t, err)

	require.NoError(t, args.ValidateAndSetDefaults())
	assert.Equal(t, 3, *args.AbendLimit)
	assert.Equal(t, 60, *args.AbendExpire)
	assert.Equal(t, "/var/log/myd", args.LogDir)
}

func TestParseArgsWithoutCommand(t *testing.T) {
	_, _, err := parseArgs([]string{"-v"})
	assert.Equal(t, errUsage, err)
}

func TestParseArgsHelp(t *testing.T) {
	_, p, err := parseArgs([]string{"--help"})
	assert.Equal(t, arg.ErrHelp, err)
	assert.NotNil(t, p)
}

func TestRunWithoutCommandIsUsageError(t *testing.T) {
	assert.Equal(t, exitUsage, run(nil))
}

func TestValuedOptions(t *testing.T) {
	valued := valuedOptions(&argsT{})

	for _, name := range []string{"--log-dir", "--log-fname", "--abend-limit", "--abend-expire", "--poll-interval", "--telemetry-address"} {
		assert.True(t, valued[name], "%s should take a value", name)
	}

	for _, name := range []string{"-v", "--verbose", "-t", "--tee", "--no-lock", "--with-reaper"} {
		assert.False(t, valued[name], "%s is a switch", name)
	}
}

func TestSplitArgsRejectsDetachedValue(t *testing.T) {
	_, _, err := splitArgs([]string{"-v", "--log-dir", "/var/log", "myd"}, valuedOptions(&argsT{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--log-dir=VALUE")
}

func TestRunWithDetachedValueIsUsageError(t *testing.T) {
	t.Setenv("LOG_DIR", t.TempDir())
	t.Setenv("LOG_FNAME", "myd.log")

	assert.Equal(t, exitUsage, run([]string{"--log-dir", "/var/log", "myd"}))
}
