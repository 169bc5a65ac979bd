// Package logger builds the process-wide structured logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a zerolog logger writing JSON lines to stdout. Components
// derive their own loggers with With().
func New() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// ForComponent tags a child logger with the component name.
func ForComponent(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
