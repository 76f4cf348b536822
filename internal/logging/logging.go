// Package logging configures the process-wide logger and hands out named
// entries for subsystems.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var defaultLogger *logrus.Logger

func init() {
	defaultLogger = logrus.New()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	if level == "silent" {
		defaultLogger.SetOutput(io.Discard)
	} else {
		parsed, err := logrus.ParseLevel(strings.ToLower(level))
		if err != nil {
			parsed = logrus.InfoLevel
		}
		defaultLogger.SetLevel(parsed)
		defaultLogger.SetOutput(os.Stderr)
	}

	defaultLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// Logger returns the shared logger instance.
func Logger() *logrus.Logger {
	return defaultLogger
}

// WithName returns a child entry tagged with a component name.
func WithName(name string) *logrus.Entry {
	return defaultLogger.WithField("component", name)
}

// SetLevel overrides the log level at runtime.
func SetLevel(level logrus.Level) {
	defaultLogger.SetLevel(level)
}
