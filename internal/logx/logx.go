package logx

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

type ctxKey struct{}

var (
	once       sync.Once
	baseLogger *slog.Logger
)

// Init initializes the global logger. Should be called early in main.
// Env vars:
//
//	LOG_LEVEL=debug|info|warn|error (default: info)
//	LOG_FORMAT=json|text (default: text)
//
// Logs go to stderr so stdout stays clean for link lists.
func Init() {
	once.Do(func() {
		baseLogger = newLogger(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
		slog.SetDefault(baseLogger)
	})
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("app", "vidgrab")
}

// FromContext retrieves the scoped logger or returns the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return base()
	}
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return base()
}

// With returns a new context containing a logger with additional attributes.
func With(ctx context.Context, args ...any) context.Context {
	l := FromContext(ctx).With(args...)
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithLogger stores l in ctx. Used by tests to capture output.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func base() *slog.Logger {
	if baseLogger == nil {
		Init()
	}
	return baseLogger
}
