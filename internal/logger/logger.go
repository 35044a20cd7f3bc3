// Package logger sets up the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// Setup installs the default logger. level is debug, info, warn or error;
// format is text or json. Unknown values fall back to info and text.
func Setup(level, format string) *slog.Logger {
	return setup(os.Stderr, level, format)
}

func setup(w io.Writer, level, format string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	defaultLogger = slog.New(h)
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

// L returns the default logger, initializing it from LOG_LEVEL and
// LOG_FORMAT if Setup has not run.
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	}
	return defaultLogger
}
