// Package logging turns the --log-level and --log-format settings into a
// [slog.Handler] for the pkgpack command.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

var (
	// ErrUnknownLevel is returned for a level name outside [Levels].
	ErrUnknownLevel = errors.New("unknown log level")
	// ErrUnknownFormat is returned for a format name outside [Formats].
	ErrUnknownFormat = errors.New("unknown log format")
)

// Levels lists the accepted level names, most verbose first.
var Levels = []string{"debug", "info", "warn", "error"}

// Formats lists the accepted output formats. "text" is colored
// human-readable output; "logfmt" and "json" are for machines.
var Formats = []string{"text", "logfmt", "json"}

// NewHandler returns a handler writing records at or above level to w in
// the named format. At debug level records carry their caller.
func NewHandler(w io.Writer, level, format string) (slog.Handler, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	debug := lvl <= slog.LevelDebug

	switch strings.ToLower(format) {
	case "text":
		logger := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(lvl),
			ReportTimestamp: true,
			ReportCaller:    debug,
			TimeFormat:      time.StampMilli,
		})
		logger.SetColorProfile(termenv.ColorProfile())
		return logger, nil
	case "logfmt":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: debug}), nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: debug}), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

// ParseLevel maps a level name, in any case, to its slog level. "warning"
// is accepted for "warn".
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownLevel, name)
}
