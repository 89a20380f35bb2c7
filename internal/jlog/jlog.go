// Package jlog is the thin structured-logging wrapper every daemon,
// worker and backend constructor takes explicitly instead of reaching
// for a package-level global, mirroring the shape of the teacher's own
// daemonLogger (cmd/bd/daemon_server.go).
package jlog

import (
	"io"
	"log/slog"
)

// Logger wraps *slog.Logger with the fixed Info/Warn/Error(msg, kv...)
// shape used throughout the workers.
type Logger struct {
	base *slog.Logger
}

// New builds a Logger writing structured text to w at the given level.
func New(w io.Writer, level slog.Level) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{base: slog.New(h)}
}

func (l *Logger) Info(msg string, args ...any)  { l.base.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.base.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.base.Error(msg, args...) }

// Nop returns a Logger that discards everything, useful as a zero-value
// default in tests and library-internal constructors.
func Nop() *Logger {
	return New(io.Discard, slog.LevelError+1)
}
