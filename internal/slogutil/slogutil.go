// Package slogutil builds appropriately configured slog loggers for the
// audit subsystems. Supports human (text) and JSON formats plus an optional
// per-project log file under .sca/logs.
package slogutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"sca/internal/paths"
)

// ParseLevel converts a config level string to a slog.Level.
// Unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger writing to w with the given level and format.
// format is "json" or "human".
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewStderr creates a logger writing to stderr.
func NewStderr(level slog.Level, format string) *slog.Logger {
	return New(os.Stderr, level, format)
}

// NewDiscardLogger returns a logger that drops all records. Used in tests
// and when no log destination is available.
func NewDiscardLogger() *slog.Logger {
	return slog.New(discardHandler{})
}

// FileLogger creates a logger writing to <projectRoot>/.sca/logs/audit.log.
// The returned closer must be closed by the caller. Falls back to a discard
// logger when the log directory cannot be created.
func FileLogger(projectRoot string, level slog.Level, format string) (*slog.Logger, io.Closer, error) {
	if _, err := paths.EnsureLogsDir(projectRoot); err != nil {
		return NewDiscardLogger(), nopCloser{}, nil
	}

	f, err := os.OpenFile(paths.AuditLogPath(projectRoot), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return NewDiscardLogger(), nopCloser{}, nil
	}

	return New(f, level, format), f, nil
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
