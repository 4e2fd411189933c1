// Package logger configures the process-wide zerolog logger.
//
// Every component receives its logger by injection; only main calls New.
// Development runs get coloured console output, everything else emits one
// JSON object per line.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. level is one of trace, debug, info, warn,
// error (unknown values fall back to info); pretty switches to the
// human-readable console writer.
func New(level string, pretty bool) zerolog.Logger {
	return NewWithOutput(level, pretty, os.Stdout)
}

// NewWithOutput is New with an explicit destination, for tests that want to
// capture output.
func NewWithOutput(level string, pretty bool, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl := parseLevel(level)
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// Component returns a child logger tagged with the owning component, so log
// lines group by subsystem without each caller repeating the field.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
