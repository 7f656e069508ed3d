// Package logging configures the process-wide charmbracelet logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// EnvLevel names the environment variable consulted when no level flag is given.
const EnvLevel = "BERTH_LOG_LEVEL"

// New returns a logger writing to w at the given level.
func New(w io.Writer, level string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
}

// Setup builds the stderr logger, preferring flagLevel over $BERTH_LOG_LEVEL,
// and installs it as the package default.
func Setup(flagLevel string) *log.Logger {
	level := flagLevel
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	l := New(os.Stderr, level)
	log.SetDefault(l)
	return l
}

// ParseLevel maps a level name to a log.Level; unknown names mean info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
