// Package log provides category-tagged structured logging on top of log/slog.
// The default logger discards everything; binaries install a handler with Setup.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
)

// Category groups log lines by subsystem
type Category string

const (
	CatAudio  Category = "audio"
	CatPool   Category = "pool"
	CatMusic  Category = "music"
	CatConfig Category = "config"
	CatUI     Category = "ui"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// Setup installs a text handler writing to w at the given level
func Setup(w io.Writer, level slog.Level) {
	SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetLogger replaces the package logger, nil restores the discarding default
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger.Store(l)
}

// ParseLevel maps debug/info/warn/error to a slog level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func Debug(cat Category, msg string, args ...any) {
	logger.Load().Debug(msg, withCategory(cat, args)...)
}

func Info(cat Category, msg string, args ...any) {
	logger.Load().Info(msg, withCategory(cat, args)...)
}

func Warn(cat Category, msg string, args ...any) {
	logger.Load().Warn(msg, withCategory(cat, args)...)
}

func Error(cat Category, msg string, args ...any) {
	logger.Load().Error(msg, withCategory(cat, args)...)
}

func withCategory(cat Category, args []any) []any {
	out := make([]any, 0, len(args)+2)
	out = append(out, "cat", string(cat))
	return append(out, args...)
}
