package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// NewLogger creates a logger writing to stderr. format is "console", "json"
// or "auto" (console on a terminal, json otherwise).
func NewLogger(debug bool, format string) (*zerolog.Logger, error) {
	return NewLoggerTo(os.Stderr, debug, format)
}

// NewLoggerTo is NewLogger with an explicit writer.
func NewLoggerTo(w io.Writer, debug bool, format string) (*zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	var out io.Writer
	switch strings.ToLower(format) {
	case "", "auto":
		out = w
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			out = consoleWriter(w)
		}
	case "console", "text":
		out = consoleWriter(w)
	case "json":
		out = w
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &l, nil
}

// ParseLevel maps a config level name onto a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(name))
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
}
