// Package logging builds the process-wide slog.Logger from the logging
// section of the configuration. Three output formats are supported:
//   - "text": plain logfmt-style output for piping and log collection
//   - "pretty": colorized human-oriented output for interactive runs
//   - "json": structured output for machine ingestion
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w in the given format.
// Unknown formats fall back to "text".
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	var h slog.Handler
	switch strings.ToLower(format) {
	case "json":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	case "pretty":
		h = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		})
	default:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}
