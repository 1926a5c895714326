package otxhook

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// SpanKind names the role of the spans opened by an Instrumentation.
// The zero value is not a valid kind; use [SpanKindInternal] for local work.
type SpanKind string

const (
	SpanKindInternal SpanKind = "INTERNAL"
	SpanKindClient   SpanKind = "CLIENT"
	SpanKindServer   SpanKind = "SERVER"
	SpanKindProducer SpanKind = "PRODUCER"
	SpanKindConsumer SpanKind = "CONSUMER"
)

// ParseSpanKind parses a span kind name, ignoring case and surrounding spaces.
func ParseSpanKind(s string) (SpanKind, error) {
	k := SpanKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown span kind %q", ErrConfiguration, s)
	}

	return k, nil
}

// Valid reports whether k is one of the five recognized kinds.
func (k SpanKind) Valid() bool {
	switch k {
	case SpanKindInternal, SpanKindClient, SpanKindServer, SpanKindProducer, SpanKindConsumer:
		return true
	default:
		return false
	}
}

// TraceKind converts k to the OTel trace API kind.
// Invalid kinds map to trace.SpanKindInternal.
func (k SpanKind) TraceKind() trace.SpanKind {
	switch k {
	case SpanKindServer:
		return trace.SpanKindServer
	case SpanKindClient:
		return trace.SpanKindClient
	case SpanKindProducer:
		return trace.SpanKindProducer
	case SpanKindConsumer:
		return trace.SpanKindConsumer
	default:
		return trace.SpanKindInternal
	}
}

func (k SpanKind) String() string {
	return string(k)
}
