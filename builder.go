package otxhook

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SpanBuilder collects everything a span is started with. Pre callbacks
// receive the builder before the span starts, so attributes they add are
// visible to samplers.
type SpanBuilder struct {
	tracer trace.Tracer
	name   string
	parent context.Context
	kind   trace.SpanKind
	attrs  []attribute.KeyValue
	links  []trace.Link
	start  time.Time
	onErr  func(error)
}

// NewSpanBuilder returns a builder for a span called name.
func NewSpanBuilder(tracer trace.Tracer, name string) *SpanBuilder {
	return &SpanBuilder{
		tracer: tracer,
		name:   name,
		kind:   trace.SpanKindInternal,
	}
}

// Name returns the span name.
func (b *SpanBuilder) Name() string { return b.name }

// SetName replaces the span name.
func (b *SpanBuilder) SetName(name string) *SpanBuilder {
	b.name = name
	return b
}

// SetParent sets the context the span is parented to.
func (b *SpanBuilder) SetParent(ctx context.Context) *SpanBuilder {
	b.parent = ctx
	return b
}

// SetSpanKind sets the span kind.
func (b *SpanBuilder) SetSpanKind(kind trace.SpanKind) *SpanBuilder {
	b.kind = kind
	return b
}

// SetAttribute sets key to the encoded form of value (see [Encode]).
// The key is used verbatim.
func (b *SpanBuilder) SetAttribute(key string, value any) *SpanBuilder {
	v, err := Encode(value)
	if err != nil && b.onErr != nil {
		b.onErr(err)
	}

	return b.SetAttributes(attribute.KeyValue{Key: attribute.Key(key), Value: v})
}

// SetAttributes adds attributes. A later attribute with the same key wins.
func (b *SpanBuilder) SetAttributes(attrs ...attribute.KeyValue) *SpanBuilder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

// AddLink links the span to another span context.
func (b *SpanBuilder) AddLink(link trace.Link) *SpanBuilder {
	b.links = append(b.links, link)
	return b
}

// SetStartTimestamp overrides the span start time.
func (b *SpanBuilder) SetStartTimestamp(t time.Time) *SpanBuilder {
	b.start = t
	return b
}

// Attributes returns the attributes collected so far.
func (b *SpanBuilder) Attributes() []attribute.KeyValue {
	return b.attrs
}

// Start starts the span.
func (b *SpanBuilder) Start() (context.Context, trace.Span) {
	parent := b.parent
	if parent == nil {
		parent = context.Background()
	}

	opts := []trace.SpanStartOption{
		trace.WithSpanKind(b.kind),
		trace.WithAttributes(b.attrs...),
	}
	if len(b.links) > 0 {
		opts = append(opts, trace.WithLinks(b.links...))
	}
	if !b.start.IsZero() {
		opts = append(opts, trace.WithTimestamp(b.start))
	}

	return b.tracer.Start(parent, b.name, opts...)
}
