// Package logger builds the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
)

// LevelCritical marks integrity failures: tampered records and clock regression.
const LevelCritical = slog.Level(12)

// New returns a JSON logger in production and a text logger in development.
func New(env string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	}
	var h slog.Handler
	switch env {
	case "dev", "local":
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h).With("service", "trialgate")
}

// Err wraps an error as a log attribute.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
