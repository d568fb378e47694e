package logfile

import (
	"fmt"
	"path/filepath"
	"time"
)

// PrefixLayout is the time layout stamped at the start of every log line.
const PrefixLayout = "[2006/01/02 15:04:05] "

// Prefix renders the line prefix for t.
func Prefix(t time.Time) string {
	return t.Format(PrefixLayout)
}

// Path returns the dated log file path for t: `<dir>/<fname>.<YYYYMMDD>`.
func Path(dir, fname string, t time.Time) string {
	y, m, d := t.Date()
	return filepath.Join(dir, fmt.Sprintf("%s.%04d%02d%02d", fname, y, int(m), d))
}
