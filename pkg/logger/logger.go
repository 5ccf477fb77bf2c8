// Package logger builds the slog.Logger shared by cmrctl and the mock CMR
// server, with a configurable level and output format (text or JSON).
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format is the log output encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures a logger. Zero values select info level and text output.
type Options struct {
	Level     string
	Format    string
	AddSource bool
}

// New creates a *slog.Logger writing to stderr.
func New(opts Options) *slog.Logger {
	return NewWithWriter(os.Stderr, opts)
}

// NewWithWriter creates a *slog.Logger writing to w. Unknown levels and
// formats fall back to info and text.
func NewWithWriter(w io.Writer, opts Options) *slog.Logger {
	level, _ := ParseLevel(opts.Level)
	format, _ := ParseFormat(opts.Format)

	hopts := &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level, case-insensitively.
// "warning" is accepted for warn, as are slog offsets such as "debug+2".
// The empty string is info; anything unparseable returns info and an error.
func ParseLevel(level string) (slog.Level, error) {
	switch s := strings.ToLower(strings.TrimSpace(level)); s {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	default:
		var l slog.Level
		if err := l.UnmarshalText([]byte(s)); err != nil {
			return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
		}
		return l, nil
	}
}

// ParseFormat converts a format name to a Format. The empty string is text.
func ParseFormat(format string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "logfmt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}
