package cli

import (
	"io"
	"log/slog"
)

// newLogger builds the process logger. Logs go to stderr so that stdout
// stays machine-readable with --output json.
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
