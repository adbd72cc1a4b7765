// Package logger is the process-wide log sink for polyrag.
//
// Only errors are printed by default so command output stays readable.
// Verbose mode lowers the level to debug and shows the pipeline sections.
// Records go to stderr as charmbracelet/log text, or JSON with timestamps.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// state is an immutable snapshot; setters publish a new one.
type state struct {
	verbose bool
	json    bool
	out     io.Writer
	log     *log.Logger
}

var (
	setMu   sync.Mutex
	current atomic.Pointer[state]
)

func init() {
	current.Store(build(false, false, os.Stderr))
}

func build(verbose, json bool, out io.Writer) *state {
	level, format := log.ErrorLevel, log.TextFormatter
	if verbose {
		level = log.DebugLevel
	}
	if json {
		format = log.JSONFormatter
	}
	return &state{
		verbose: verbose,
		json:    json,
		out:     out,
		log: log.NewWithOptions(out, log.Options{
			Level:           level,
			Formatter:       format,
			ReportTimestamp: json,
		}),
	}
}

func update(fn func(s state) state) {
	setMu.Lock()
	defer setMu.Unlock()
	next := fn(*current.Load())
	current.Store(build(next.verbose, next.json, next.out))
}

// SetVerbose switches between errors only and full debug output.
func SetVerbose(v bool) {
	update(func(s state) state { s.verbose = v; return s })
}

// IsVerbose reports whether debug output is on.
func IsVerbose() bool {
	return current.Load().verbose
}

// SetJSON selects JSON records instead of text.
func SetJSON(v bool) {
	update(func(s state) state { s.json = v; return s })
}

// SetOutput redirects records, stderr by default.
func SetOutput(w io.Writer) {
	update(func(s state) state { s.out = w; return s })
}

func Debug(format string, args ...any) { current.Load().log.Debugf(format, args...) }

func Info(format string, args ...any) { current.Load().log.Infof(format, args...) }

func Warn(format string, args ...any) { current.Load().log.Warnf(format, args...) }

// Error is printed whatever the verbosity.
func Error(format string, args ...any) { current.Load().log.Errorf(format, args...) }

// Section writes a banner between pipeline stages in verbose text mode.
func Section(name string) {
	s := current.Load()
	if s.verbose && !s.json {
		fmt.Fprintf(s.out, "\n=== %s ===\n", name)
	}
}
