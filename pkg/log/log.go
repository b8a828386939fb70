// Package log configures the process-wide structured logger. Every binary
// calls Setup once at startup; components then derive their own logger via
// WithModule so log lines carry the component name.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr as the default slog logger.
// Unrecognized level names fall back to info.
func Setup(logLevel string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	})

	slog.SetDefault(slog.New(handler))
}

// WithModule returns the default logger tagged with a module attribute.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
