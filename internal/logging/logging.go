// Package logging provides structured logging using slog.
// Logs are written to .remedy/debug.log in append mode so they never
// interleave with console output on stdout.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	// LogFileName is the name of the debug log file.
	LogFileName = "debug.log"
	// ConfigDir is the directory name for project configuration.
	ConfigDir = ".remedy"
)

var (
	defaultLogger *slog.Logger
	logFile       *os.File
	mu            sync.RWMutex
)

// Init initializes the logger with the project root path.
// If projectRoot is empty, or the log file cannot be opened, logging is
// disabled (writes to io.Discard).
func Init(projectRoot string, level slog.Level) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	var w io.Writer = io.Discard
	if projectRoot != "" {
		dir := filepath.Join(projectRoot, ConfigDir)
		if err := os.MkdirAll(dir, 0755); err == nil {
			f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				logFile = f
				w = f
			}
		}
	}

	defaultLogger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

// InitWriter points the logger at an arbitrary writer. Used by tests.
func InitWriter(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	defaultLogger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func closeLocked() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Close closes the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Logger returns the default logger.
// If not initialized, returns a no-op logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if defaultLogger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return defaultLogger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}
