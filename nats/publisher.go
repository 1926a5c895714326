package nats

import (
	"context"

	"github.com/arloliu/otxhook"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/propagation"
)

// MsgPublisher is the part of jetstream.JetStream a Publisher needs.
type MsgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

var _ MsgPublisher = (jetstream.JetStream)(nil)

// Publisher publishes JetStream messages as calls of a hooked operation.
// The trace context of the hook span is injected into every message.
type Publisher struct {
	pub       MsgPublisher
	table     *otxhook.Table
	operation string
	prop      propagation.TextMapPropagator
	stream    string
}

// NewPublisher returns a Publisher running publishes through the hooks
// installed in t under operation. Panics if pub is nil.
func NewPublisher(pub MsgPublisher, t *otxhook.Table, operation string, opts ...Option) *Publisher {
	if pub == nil {
		panic("otxhook/nats: publisher must not be nil")
	}
	o := applyOptions(opts)

	return &Publisher{
		pub:       pub,
		table:     t,
		operation: operation,
		prop:      o.propagator(),
		stream:    o.stream,
	}
}

// Publish publishes data on subject.
func (p *Publisher) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	return p.PublishMsg(ctx, &nats.Msg{Subject: subject, Data: data}, opts...)
}

// PublishMsg publishes msg. Its headers are allocated if needed.
// The acknowledgement is the call's result.
func (p *Publisher) PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	class, function := otxhook.SplitOperation(p.operation)
	inv := &otxhook.Invocation{
		Target:   p.pub,
		Args:     []any{msg.Subject, msg.Data, p.stream},
		Class:    class,
		Function: function,
	}

	return otxhook.Invoke(ctx, p.table, p.operation, inv, func(ctx context.Context) (*jetstream.PubAck, error) {
		InjectNATSWithPropagator(ctx, msg, p.prop)
		return p.pub.PublishMsg(ctx, msg, opts...)
	})
}
