package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/kstaniek/uartctl/internal/logging"
)

// debugLogPath is the persistent mirror sink used when -debug is set.
const debugLogPath = "/tmp/uartctl.log"

// setupLogger builds the process logger. -debug forces debug level and
// mirrors log output to debugLogPath; the returned closer releases the
// mirror file.
func setupLogger(cfg *appConfig) (*slog.Logger, io.Closer) {
	var lvl slog.Level
	switch cfg.logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if cfg.debug {
		lvl = slog.LevelDebug
		l, closer, err := logging.NewWithMirror(cfg.logFormat, lvl, os.Stderr, debugLogPath)
		if err == nil {
			l = l.With("app", "uartctl")
			logging.Set(l)
			return l, closer
		}
		// fall back to stderr only
		fallback := logging.New(cfg.logFormat, lvl, os.Stderr).With("app", "uartctl")
		logging.Set(fallback)
		fallback.Warn("log_mirror_failed", "path", debugLogPath, "error", err)
		return fallback, io.NopCloser(nil)
	}
	l := logging.New(cfg.logFormat, lvl, os.Stderr).With("app", "uartctl")
	logging.Set(l)
	return l, io.NopCloser(nil)
}
