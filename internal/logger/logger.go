package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger.
//   - level: trace, debug, info, warn, error (anything else falls back to info)
//   - format: "pretty" for a console writer, anything else for JSON lines
func New(out io.Writer, level, format string) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	if format == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "cps-exam-service").
		Logger()
}

// Setup configures the global level and returns a stdout logger.
func Setup(level, format string) zerolog.Logger {
	log := New(os.Stdout, level, format)
	zerolog.SetGlobalLevel(log.GetLevel())
	return log
}
