package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span represents a logical unit of work tied to a request trace.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span from the provided context. The derived
// context carries a logger tagged with trace_id, span_id, span_name and,
// for nested spans, parent_span_id. Span attributes never accumulate across
// nesting levels.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	base := traceLoggerFromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		base = base.With(slog.String("trace_id", traceID))
		ctx = context.WithValue(ctx, traceLoggerKey, base)
	}

	parentSpanID := SpanIDFromContext(ctx)
	spanID := uuid.NewString()

	logger := base.With(
		slog.String("span_id", spanID),
		slog.String("span_name", name),
	)
	if parentSpanID != "" {
		logger = logger.With(slog.String("parent_span_id", parentSpanID))
	}

	ctx = WithLogger(ctx, logger)
	ctx = WithSpanID(ctx, spanID)

	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// End finalizes the span and emits a completion log entry.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.logger.Info("span completed", slog.Duration("duration", time.Since(s.start)))
}

// traceLoggerFromContext returns the logger a trace was started with, so that
// nested spans do not inherit their parent's span attributes.
func traceLoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(traceLoggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return FromContext(ctx)
}
