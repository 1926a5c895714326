package nats

import (
	"strconv"

	"github.com/arloliu/otxhook"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Parameter names of a hooked message, in argument order.
const (
	ParamSubject = "subject"
	ParamData    = "data"
	ParamStream  = "stream"
)

// Messaging operation names, used as the span name verb.
const (
	OpPublish = "publish"
	OpProcess = "process"
)

const messagingSystem = "nats"

// Attribute keys from the OTel messaging semantic conventions.
const (
	attrMessagingSystem          = "messaging.system"
	attrMessagingOperationName   = "messaging.operation.name"
	attrMessagingOperationType   = "messaging.operation.type"
	attrMessagingDestinationName = "messaging.destination.name"
	attrMessagingMessageID       = "messaging.message.id"
	attrMessagingMessageBodySize = "messaging.message.body.size"
	attrNATSStream               = "nats.stream"
)

// operationType maps an operation name to its semantic convention type.
func operationType(op string) string {
	if op == OpPublish {
		return "send"
	}

	return op
}

func messagingAttributes(op, subject, stream string, bodySize int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 6)
	attrs = append(attrs,
		attribute.String(attrMessagingSystem, messagingSystem),
		attribute.String(attrMessagingOperationName, op),
		attribute.String(attrMessagingOperationType, operationType(op)),
	)

	if subject != "" {
		attrs = append(attrs, attribute.String(attrMessagingDestinationName, subject))
	}
	if stream != "" {
		attrs = append(attrs, attribute.String(attrNATSStream, stream))
	}
	if bodySize > 0 {
		attrs = append(attrs, attribute.Int(attrMessagingMessageBodySize, bodySize))
	}

	return attrs
}

// messageArgs reads the arguments of a message invocation. Missing or
// mistyped arguments come back as zero values.
func messageArgs(inv *otxhook.Invocation) (subject string, data []byte, stream string) {
	if inv == nil {
		return "", nil, ""
	}
	if len(inv.Args) > 0 {
		subject, _ = inv.Args[0].(string)
	}
	if len(inv.Args) > 1 {
		data, _ = inv.Args[1].([]byte)
	}
	if len(inv.Args) > 2 {
		stream, _ = inv.Args[2].(string)
	}

	return subject, data, stream
}

// Messaging returns a pre callback that names the span "op destination",
// where the destination is the stream when known and the subject otherwise,
// and adds the messaging semantic convention attributes.
func Messaging(op string) otxhook.PreCallback {
	return func(b *otxhook.SpanBuilder, inv *otxhook.Invocation) {
		subject, data, stream := messageArgs(inv)

		dest := subject
		if stream != "" {
			dest = stream
		}
		b.SetName(otxhook.NameMessaging(op, dest))
		b.SetAttributes(messagingAttributes(op, subject, stream, len(data))...)
	}
}

// PublishAck is a post callback that records the sequence of the publish
// acknowledgement as the message id.
func PublishAck(span trace.Span, _ *otxhook.Invocation, result any, _ error) {
	if ack, ok := result.(*jetstream.PubAck); ok && ack != nil {
		span.SetAttributes(attribute.String(attrMessagingMessageID, strconv.FormatUint(ack.Sequence, 10)))
	}
}

// MessageSignature describes a message operation. Its parameters are the
// subject, the payload and the stream.
func MessageSignature(class, function string) otxhook.Signature {
	return otxhook.Signature{
		Class:    class,
		Function: function,
		Params:   []string{ParamSubject, ParamData, ParamStream},
	}
}
