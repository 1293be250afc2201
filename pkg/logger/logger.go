// Package logger builds the process-wide zerolog root logger. Services
// derive component-tagged children from it via log.With().Str("component", ...).
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls the root logger's verbosity and output format.
type Config struct {
	Level  string // zerolog level name; unknown or empty falls back to info
	Pretty bool   // human-readable console output instead of JSON lines
}

// New builds the root logger. The configured level also becomes the global
// zerolog filter, so derived loggers inherit it.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// SetGlobalLogger replaces zerolog's package-level logger with l, so code
// using the zerolog/log shortcuts writes through the configured root.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
