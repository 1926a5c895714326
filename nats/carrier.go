package nats

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// headerCarrier adapts nats.Header to propagation.TextMapCarrier.
type headerCarrier nats.Header

func (c headerCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

func (c headerCarrier) Set(key, value string) {
	nats.Header(c).Set(key, value)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}

	return keys
}

// InjectNATS writes the trace context of ctx into msg's headers with the
// global propagator, allocating the headers if needed.
func InjectNATS(ctx context.Context, msg *nats.Msg) {
	InjectNATSWithPropagator(ctx, msg, otel.GetTextMapPropagator())
}

// InjectNATSWithPropagator is InjectNATS with an explicit propagator.
func InjectNATSWithPropagator(ctx context.Context, msg *nats.Msg, prop propagation.TextMapPropagator) {
	if msg.Header == nil {
		msg.Header = make(nats.Header)
	}

	prop.Inject(ctx, headerCarrier(msg.Header))
}

// ExtractNATS returns ctx carrying the trace context found in header,
// using the global propagator.
func ExtractNATS(ctx context.Context, header nats.Header) context.Context {
	return ExtractNATSWithPropagator(ctx, header, otel.GetTextMapPropagator())
}

// ExtractNATSWithPropagator is ExtractNATS with an explicit propagator.
func ExtractNATSWithPropagator(ctx context.Context, header nats.Header, prop propagation.TextMapPropagator) context.Context {
	if header == nil {
		return ctx
	}

	return prop.Extract(ctx, headerCarrier(header))
}
