// Package tracker holds the tracer, span namer and default span kind of the
// process-wide instrumentation, for span helpers that have no instance at hand.
package tracker

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

// Namer determines how span names are formatted.
type Namer interface {
	Name(string) string
}

type defaultNamer struct{}

func (defaultNamer) Name(s string) string { return s }

type state struct {
	tracer trace.Tracer
	namer  Namer
	kind   trace.SpanKind
}

var global atomic.Pointer[state]

func init() {
	Reset()
}

// Set replaces the global tracing state as a whole.
// If n is nil, defaultNamer is used; an unspecified kind means internal.
func Set(t trace.Tracer, n Namer, kind trace.SpanKind) {
	if n == nil {
		n = defaultNamer{}
	}
	if kind == trace.SpanKindUnspecified {
		kind = trace.SpanKindInternal
	}
	global.Store(&state{tracer: t, namer: n, kind: kind})
}

// Reset clears the global tracing state.
func Reset() {
	global.Store(&state{namer: defaultNamer{}, kind: trace.SpanKindInternal})
}

// Start begins a new span using the global tracer, namer and default kind.
// Options in opts override the default kind.
// If no tracer is configured, it returns the current span from context (no-op).
func Start(ctx context.Context, operation string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	s := global.Load()
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	opts = append([]trace.SpanStartOption{trace.WithSpanKind(s.kind)}, opts...)

	return s.tracer.Start(ctx, s.namer.Name(operation), opts...)
}
