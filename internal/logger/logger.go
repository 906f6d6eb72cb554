// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger carries a [slog.Logger] through a [context.Context].
package logger

import (
	"context"
	"io"
	"log/slog"
)

// Logf is the basic logger type: a printf-like func. Like [log.Printf], the
// format need not end in a newline. Logf functions must be safe for concurrent
// use.
type Logf func(format string, args ...any)

// Write implements the [io.Writer] interface.
func (f Logf) Write(p []byte) (n int, err error) {
	f("%s", p)
	return len(p), nil
}

// Logger bundles a [slog.Logger] with its level so that commands can flip
// verbosity at runtime.
type Logger struct {
	Logger *slog.Logger
	Level  *slog.LevelVar
}

// New returns a [Logger] writing text logs to w at [slog.LevelInfo].
func New(w io.Writer) *Logger {
	level := new(slog.LevelVar)
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
		Level:  level,
	}
}

type ctxKey struct{}

// With returns a copy of ctx carrying l.
func With(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Get returns the [Logger] carried by ctx, or a logger backed by
// [slog.Default] if ctx carries none.
func Get(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), Level: new(slog.LevelVar)}
}

// DebugContext logs at [slog.LevelDebug] using the logger carried by ctx.
func DebugContext(ctx context.Context, msg string, args ...any) {
	Get(ctx).Logger.DebugContext(ctx, msg, args...)
}

// InfoContext logs at [slog.LevelInfo] using the logger carried by ctx.
func InfoContext(ctx context.Context, msg string, args ...any) {
	Get(ctx).Logger.InfoContext(ctx, msg, args...)
}

// WarnContext logs at [slog.LevelWarn] using the logger carried by ctx.
func WarnContext(ctx context.Context, msg string, args ...any) {
	Get(ctx).Logger.WarnContext(ctx, msg, args...)
}

// ErrorContext logs at [slog.LevelError] using the logger carried by ctx.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get(ctx).Logger.ErrorContext(ctx, msg, args...)
}
