package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the logger for one component. Level comes from
// VAULT_LOG_LEVEL (default info). VAULT_LOG_FORMAT=console switches from
// JSON lines to human-readable output for local runs.
func NewLogger(component string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(os.Getenv("VAULT_LOG_FORMAT"), "console") {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewLoggerWithLevel(w, component, parseLogLevel(os.Getenv("VAULT_LOG_LEVEL")))
}

// NewLoggerWithLevel creates a logger with an explicit level writing to w.
func NewLoggerWithLevel(w io.Writer, component string, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func parseLogLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
