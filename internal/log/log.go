// Package log provides category-based structured logging for runclub.
// Messages carry a category and key/value fields and are written through a
// log/slog handler in text or JSON form.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Category groups related log messages.
type Category string

const (
	CatDB           Category = "db"           // Database connections, migrations, queries
	CatHTTP         Category = "http"         // Request handling and access log
	CatRegistration Category = "registration" // Sign-up admission and cancellation
	CatAuth         Category = "auth"         // Authentication and accounts
	CatConfig       Category = "config"       // Configuration loading
	CatCache        Category = "cache"        // Run metadata cache
	CatTracing      Category = "tracing"      // Trace provider lifecycle
)

var (
	mu      sync.RWMutex
	current = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Init replaces the process logger. format is "text" or "json"; level is one
// of debug, info, warn, error.
func Init(w io.Writer, level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	mu.Lock()
	current = slog.New(h)
	mu.Unlock()
	return nil
}

// ParseLevel maps a level name onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger returns the underlying slog.Logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	emit(slog.LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	emit(slog.LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	emit(slog.LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	emit(slog.LevelError, cat, msg, fields...)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	emit(slog.LevelError, cat, msg, fields...)
}

func emit(level slog.Level, cat Category, msg string, fields ...any) {
	// Odd field count: keep the orphan key visible instead of letting slog
	// render it as !BADKEY.
	if len(fields)%2 != 0 {
		fields = append(fields, "<missing>")
	}
	args := make([]any, 0, len(fields)+2)
	args = append(args, "category", string(cat))
	args = append(args, fields...)
	Logger().Log(context.Background(), level, msg, args...)
}
