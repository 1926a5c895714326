// Package nats routes NATS JetStream publishes and message handlers through
// hook tables.
//
// Hooks use [MessageSignature], whose parameters are the subject, the
// payload and the stream. The [Messaging] pre callback names spans after the
// messaging conventions ("publish ORDERS") and adds the messaging.*
// attributes; [PublishAck] records the acknowledged sequence.
//
// # Publishing
//
//	err := inst.Hook(hooks, otxhook.HookSpec{
//	    Signature: otxnats.MessageSignature("Orders", "publish"),
//	    Params:    []otxhook.Param{otxhook.P(otxnats.ParamSubject)},
//	    Pre:       otxnats.Messaging(otxnats.OpPublish),
//	    Post:      otxnats.PublishAck,
//	})
//
//	js, _ := jetstream.New(nc)
//	pub := otxnats.NewPublisher(js, hooks, "Orders::publish", otxnats.WithStream("ORDERS"))
//	ack, err := pub.Publish(ctx, "orders.created", data)
//
// The trace context of the hook span travels in the message headers.
//
// # Consuming
//
//	cons.Consume(otxnats.HookedHandler(hooks, "Orders::process",
//	    func(ctx context.Context, msg jetstream.Msg) error {
//	        return processOrder(ctx, msg.Data())
//	    },
//	    otxnats.WithAutoAck(true),
//	))
//
// The handler's span is parented to the trace context found in the headers.
package nats
