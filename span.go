package otxhook

import (
	"context"

	"github.com/arloliu/otxhook/internal/tracker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Start begins a span on the process-wide instrumentation, named by its
// namer and of its span kind. Before [Init] it starts nothing and returns
// the span already on ctx.
//
// Hooked code uses it for child spans below the hook span:
//
//	ctx, span := otxhook.Start(ctx, "decode")
//	defer span.End()
func Start(ctx context.Context, operation string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracker.Start(ctx, operation, opts...)
}

// StartKind is Start with an explicit span kind.
func StartKind(ctx context.Context, operation string, kind SpanKind, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Start(ctx, operation, append(opts, trace.WithSpanKind(kind.TraceKind()))...)
}

// Span returns the current span from context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// TraceID returns the trace ID on ctx, or "" if none.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return ""
}

// SpanID returns the span ID on ctx, or "" if none.
func SpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		return sc.SpanID().String()
	}

	return ""
}

// RecordError records err on the current span the way hooks record a failed
// call: an escaped exception event plus an error status. A nil err is a no-op.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	recordFailure(trace.SpanFromContext(ctx), err)
}

// SetSuccess marks the current span as successful.
func SetSuccess(ctx context.Context) {
	trace.SpanFromContext(ctx).SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// SetAttribute encodes value and sets it on the current span under the
// process-wide prefixed name. It returns ErrNotInitialized before [Init],
// and ErrEncoding, after setting the placeholder, for values that cannot be
// encoded.
func SetAttribute(ctx context.Context, name string, value any) error {
	key, err := AttributeName(name)
	if err != nil {
		return err
	}

	v, err := Encode(value)
	trace.SpanFromContext(ctx).SetAttributes(attribute.KeyValue{Key: attribute.Key(key), Value: v})

	return err
}
