package nats

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type options struct {
	prop    propagation.TextMapPropagator
	stream  string
	autoAck bool
}

// Option configures hooked handlers and publishers.
type Option func(*options)

// WithPropagator sets the propagator used for message headers.
// The global propagator is used by default.
func WithPropagator(prop propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.prop = prop
	}
}

// WithStream sets the stream passed to hooks as the stream argument. On the
// consuming side it overrides the stream found in message metadata.
func WithStream(stream string) Option {
	return func(o *options) {
		o.stream = stream
	}
}

// WithAutoAck acks messages whose handler succeeds and naks the others.
func WithAutoAck(enabled bool) Option {
	return func(o *options) {
		o.autoAck = enabled
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func (o options) propagator() propagation.TextMapPropagator {
	if o.prop != nil {
		return o.prop
	}

	return otel.GetTextMapPropagator()
}
