package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	traceIDKey
	spanIDKey
	// traceLoggerKey holds the logger a trace started with, before span attrs.
	traceLoggerKey
)

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the request-scoped logger or falls back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// Correlation identifiers carried alongside the logger.

func WithRequestID(ctx context.Context, id string) context.Context { return withID(ctx, requestIDKey, id) }
func RequestIDFromContext(ctx context.Context) string              { return idFrom(ctx, requestIDKey) }

func WithTraceID(ctx context.Context, id string) context.Context { return withID(ctx, traceIDKey, id) }
func TraceIDFromContext(ctx context.Context) string              { return idFrom(ctx, traceIDKey) }

func WithSpanID(ctx context.Context, id string) context.Context { return withID(ctx, spanIDKey, id) }
func SpanIDFromContext(ctx context.Context) string              { return idFrom(ctx, spanIDKey) }

func withID(ctx context.Context, key ctxKey, id string) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, key, id)
}

func idFrom(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key).(string)
	return id
}
