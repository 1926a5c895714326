package nats

import (
	"testing"

	"github.com/arloliu/otxhook"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}

	return m
}

func TestMessagingAttributes(t *testing.T) {
	attrs := attrMap(messagingAttributes(OpPublish, "orders.created", "ORDERS", 12))
	assert.Equal(t, "nats", attrs[attrMessagingSystem].AsString())
	assert.Equal(t, "publish", attrs[attrMessagingOperationName].AsString())
	assert.Equal(t, "send", attrs[attrMessagingOperationType].AsString())
	assert.Equal(t, "orders.created", attrs[attrMessagingDestinationName].AsString())
	assert.Equal(t, "ORDERS", attrs[attrNATSStream].AsString())
	assert.Equal(t, int64(12), attrs[attrMessagingMessageBodySize].AsInt64())

	attrs = attrMap(messagingAttributes(OpProcess, "", "", 0))
	assert.Equal(t, "process", attrs[attrMessagingOperationType].AsString())
	assert.NotContains(t, attrs, attribute.Key(attrMessagingDestinationName))
	assert.NotContains(t, attrs, attribute.Key(attrNATSStream))
	assert.NotContains(t, attrs, attribute.Key(attrMessagingMessageBodySize))
}

func TestMessageArgs(t *testing.T) {
	subject, data, stream := messageArgs(&otxhook.Invocation{Args: []any{"a.b", []byte("x"), "S"}})
	assert.Equal(t, "a.b", subject)
	assert.Equal(t, []byte("x"), data)
	assert.Equal(t, "S", stream)

	subject, data, stream = messageArgs(&otxhook.Invocation{Args: []any{42}})
	assert.Empty(t, subject)
	assert.Nil(t, data)
	assert.Empty(t, stream)

	subject, _, _ = messageArgs(nil)
	assert.Empty(t, subject)
}

func TestMessagingCallback(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	b := otxhook.NewSpanBuilder(tp.Tracer("test"), "Orders::publish")
	Messaging(OpPublish)(b, &otxhook.Invocation{Args: []any{"orders.created", []byte("{}"), ""}})
	assert.Equal(t, "publish orders.created", b.Name())

	Messaging(OpProcess)(b, &otxhook.Invocation{Args: []any{"orders.created", []byte("{}"), "ORDERS"}})
	assert.Equal(t, "process ORDERS", b.Name())

	_, span := b.Start()
	PublishAck(span, nil, &jetstream.PubAck{Stream: "ORDERS", Sequence: 42}, nil)
	PublishAck(span, nil, "not an ack", nil)
	span.End()

	spans := exporter.GetSpans()
	assert.Len(t, spans, 1)
	assert.Equal(t, "42", attrMap(spans[0].Attributes)[attrMessagingMessageID].AsString())
}
