// Package logger provides slog construction and attribute helpers shared by
// all components. Attribute helpers use the empty Attr pattern for nil
// safety, so call sites never need explicit nil checks.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// New creates a JSON logger writing to stdout at the given level.
// Unrecognized levels fall back to info.
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// Error creates an attribute for a single error under the key "error".
// Returns an empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component creates an attribute identifying the emitting component.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// SessionID creates an attribute for session identifiers.
func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

// Method creates an attribute for HTTP methods.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Path creates an attribute for URL paths.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// Status creates an attribute for HTTP status codes.
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}
