package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the API logger. Production output is uncolored and starts at info.
func New(environment string) zerolog.Logger {
	logger := newConsole(os.Stdout, environment == "production").With().
		Str("env", environment).
		Logger()

	if environment != "production" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return logger
}

// NewWithLevel builds the worker logger from a textual level.
func NewWithLevel(level string) zerolog.Logger {
	logger := newConsole(os.Stdout, false)
	zerolog.SetGlobalLevel(ParseLevel(level))
	return logger
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newConsole(out io.Writer, noColor bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}
