// Package log configures the process-wide slog default. Output goes to
// stderr so packaging summaries printed on stdout stay machine-readable.
package log

import (
	"log/slog"
	"os"
	"strings"
)

func Setup(logLevel string) {
	var level slog.Level

	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns a logger tagged with the package concern emitting it,
// e.g. "packager" or "catalog".
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
