package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a console zerolog.Logger tagged with the service name and
// environment.
func New(serviceName, environment, level string) zerolog.Logger {
	return NewWithWriter(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}, serviceName, environment, level)
}

// NewWithWriter is New with a caller-provided output.
func NewWithWriter(w io.Writer, serviceName, environment, level string) zerolog.Logger {
	return zerolog.New(w).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("environment", environment).
		Logger().
		Level(ParseLevel(level))
}

// ParseLevel parses a level name case-insensitively, defaulting to info.
func ParseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
