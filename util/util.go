// Package util has small things the command-line tools share.
package util

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger makes a logger with the given level ("debug", "info",
// "warn", or "error") and format ("text" or "json").  An unknown
// level is "info".
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: l}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
