package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	Name       = "noisegen"
	TimeFormat = "02/Jan/2006: 15:04:05"
)

// Levels indexed by verbosity count
var Levels = []log.Level{log.WarnLevel, log.InfoLevel, log.DebugLevel}

// LevelFor maps a -v count to a level, clamping to the most verbose tier
func LevelFor(verbosity int) log.Level {
	if verbosity < 0 {
		verbosity = 0
	}
	if verbosity >= len(Levels) {
		verbosity = len(Levels) - 1
	}
	return Levels[verbosity]
}

// New builds the process logger. Output always goes to stderr and is
// duplicated to logFile when one is given. The returned func closes the file.
func New(verbosity int, logFile string) (*log.Logger, func() error, error) {
	return newLogger(os.Stderr, verbosity, logFile)
}

func newLogger(console io.Writer, verbosity int, logFile string) (*log.Logger, func() error, error) {
	closer := func() error { return nil }
	out := console

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(console, f)
		closer = f.Close
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           LevelFor(verbosity),
		Prefix:          Name,
		CallerFormatter: callerFormatter,
	})

	return logger, closer, nil
}

// callerFormatter renders "pkg/file.go:line func" so lines carry the calling function too
func callerFormatter(file string, line int, fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return log.ShortCallerFormatter(file, line, fn) + " " + fn
}
