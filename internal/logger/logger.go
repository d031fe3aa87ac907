// Package logger holds the process-wide slog logger the CLI entry point
// configures. Library callers that run before SetGlobal get a stderr
// fallback at the current debug level.
package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	global  *slog.Logger
	verbose bool
)

// SetGlobal installs the logger and records whether debug logging is on
func SetGlobal(logger *slog.Logger, debug bool) {
	mu.Lock()
	defer mu.Unlock()
	global = logger
	verbose = debug
}

// Get returns the installed logger, or a stderr text logger when none has
// been installed yet
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global != nil {
		return global
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// IsDebug reports whether debug logging is enabled
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}
