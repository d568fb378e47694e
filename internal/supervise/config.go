package supervise

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Program returns the path to the program to run
func (c *Config) Program() (string, error) {
	if len(c.Command) == 0 {
		return "", errors.New("no command configured")
	}

	program := c.Command[0]
	if filepath.IsAbs(program) {
		return filepath.Clean(program), nil
	}

	resolved, err := exec.LookPath(program)
	if err != nil {
		return "", errors.Wrapf(err, "could not find %s in $PATH", program)
	}

	return resolved, nil
}

// Name returns the canonical "name" of the program, used to label log lines
func (c *Config) Name() string {
	if len(c.Command) == 0 {
		return ""
	}

	arg0 := c.Command[0]

	if strings.Contains(arg0, string(os.PathSeparator)) {
		return filepath.Base(arg0)
	}

	return arg0
}

// Args returns the arguments to the program provided
func (c *Config) Args() []string {
	return c.Command[1:]
}

// CommandString returns the command to execute as a string
func (c *Config) CommandString() (string, error) {
	prog, err := c.Program()
	if err != nil {
		return "", errors.Wrap(err, "could not get program path")
	}

	return strings.Join(append([]string{prog}, c.Args()...), " "), nil
}
