// Package log configures the process-wide slog default. Packages log
// through slog directly; only the binaries call Setup.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text handler at the given level as the slog default
// and returns it. Unknown level names fall back to info.
func Setup(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
