// Package logging configures the process-wide zerolog root logger.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the root logger. format is "json" or "console"; level is any
// zerolog level name, defaulting to info when unparsable.
func New(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(lvl).With().Timestamp().Logger()
}
