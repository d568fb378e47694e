package logformatter

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/pirogoeth/exmon/pkg/logfile"
)

const (
	// FormatDefault creates the exmon line format: `LEVEL: message key=value`
	FormatDefault = "default"

	// FormatPlain creates a barebones logrus.TextFormatter
	FormatPlain = "plain"

	// FormatJSON creates a logrus.JSONFormatter
	FormatJSON = "json"
)

// Configure returns a configured logrus.Formatter based on
// the provided formatter name. Every format is stamped with the
// log file line prefix so diagnostics line up with forwarded output.
func Configure(useFormatter string) (log.Formatter, error) {
	var formatter log.Formatter

	switch useFormatter {
	case FormatDefault, "":
		formatter = new(LineFormatter)
	case FormatPlain:
		formatter = &log.TextFormatter{
			DisableColors:          true,
			DisableLevelTruncation: false,
			DisableSorting:         true,
			DisableTimestamp:       true,
			ForceColors:            false,
		}
	case FormatJSON:
		formatter = &log.JSONFormatter{
			DisableTimestamp: false,
		}
	default:
		return nil, errors.Errorf("unknown formatter configuration: %s", useFormatter)
	}

	return &PrefixFormatter{Inner: formatter}, nil
}

// PrefixFormatter prepends the log file prefix, built from the entry's
// time, to every line rendered by Inner.
type PrefixFormatter struct {
	Inner log.Formatter
}

func (f *PrefixFormatter) Format(entry *log.Entry) ([]byte, error) {
	body, err := f.Inner.Format(entry)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBufferString(logfile.Prefix(entry.Time))
	buf.Write(body)

	return buf.Bytes(), nil
}

// LineFormatter renders `LEVEL: message key=value ...` on a single line.
type LineFormatter struct{}

func (f *LineFormatter) Format(entry *log.Entry) ([]byte, error) {
	buf := &bytes.Buffer{}

	buf.WriteString(strings.ToUpper(entry.Level.String()))
	buf.WriteString(": ")
	buf.WriteString(strings.TrimRight(entry.Message, "\n"))

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(buf, " %s=%v", k, entry.Data[k])
	}

	buf.WriteByte('\n')

	return buf.Bytes(), nil
}
