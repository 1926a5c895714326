package nats

import (
	"context"

	"github.com/arloliu/otxhook"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
)

// Handler processes one JetStream message. ctx carries the hook span.
type Handler func(ctx context.Context, msg jetstream.Msg) error

// HookedHandler returns a jetstream.MessageHandler that runs every message
// through the hooks installed in t under operation. The trace context in the
// message headers becomes the parent; the arguments are the subject, the
// payload and the stream. A handler panic is observed by the hooks and then
// resumed.
//
//	cons.Consume(otxnats.HookedHandler(hooks, "Orders::process", processOrder,
//	    otxnats.WithAutoAck(true)))
func HookedHandler(t *otxhook.Table, operation string, handler Handler, opts ...Option) jetstream.MessageHandler {
	if handler == nil {
		panic("otxhook/nats: handler must not be nil")
	}
	o := applyOptions(opts)
	prop := o.propagator()
	class, function := otxhook.SplitOperation(operation)

	return func(msg jetstream.Msg) {
		ctx := ExtractNATSWithPropagator(context.Background(), msg.Headers(), prop)

		stream := o.stream
		if stream == "" {
			if md, err := msg.Metadata(); err == nil && md != nil {
				stream = md.Stream
			}
		}

		inv := &otxhook.Invocation{
			Target:   msg,
			Args:     []any{msg.Subject(), msg.Data(), stream},
			Class:    class,
			Function: function,
		}
		_, err := t.Call(ctx, operation, inv, func(ctx context.Context) (any, error) {
			return nil, handler(ctx, msg)
		})

		if o.autoAck {
			settle(msg, err)
		}
	}
}

func settle(msg jetstream.Msg, err error) {
	var ackErr error
	if err != nil {
		ackErr = msg.Nak()
	} else {
		ackErr = msg.Ack()
	}
	if ackErr != nil {
		otel.Handle(ackErr)
	}
}
