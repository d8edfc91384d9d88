// Package logging wraps log/slog behind a small context-aware interface so
// packages log the same way whether they run in the server or the CLI.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is a structured logger. Variadic args are slog key/value pairs:
//
//	log.Info(ctx, "user created", "user_id", id)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// New returns a JSON logger in production and a text logger at debug
// level otherwise.
func New(env string, w io.Writer) *SlogLogger {
	if w == nil {
		w = os.Stdout
	}
	var h slog.Handler
	if env == "prod" || env == "production" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return NewSlogLogger(slog.New(h))
}

// Discard drops everything. Used by tests and optional collaborators.
func Discard() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
