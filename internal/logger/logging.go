// Package logger provides prefixed charmbracelet/log loggers for the
// engine and providers.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to stderr with the given prefix.
func New(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// Discard creates a logger that drops everything. Used as the default
// so library consumers opt in to output.
func Discard(prefix string) *log.Logger {
	l := log.NewWithOptions(io.Discard, log.Options{Prefix: prefix})
	l.SetLevel(log.FatalLevel + 1)
	return l
}
