package otxhook

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
)

// SetBaggage returns ctx with key=value added to its baggage. Hooks built
// with [WithBaggageAttributes] copy such members onto their spans.
//
// Keys must be valid HTTP header tokens and values must be percent-encoded
// where they contain characters outside the W3C Baggage value set.
func SetBaggage(ctx context.Context, key, value string) (context.Context, error) {
	member, err := baggage.NewMember(key, value)
	if err != nil {
		return ctx, fmt.Errorf("%w: baggage member %q: %w", ErrInvalidArgument, key, err)
	}

	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx, fmt.Errorf("%w: baggage member %q: %w", ErrInvalidArgument, key, err)
	}

	return baggage.ContextWithBaggage(ctx, bag), nil
}

// MustSetBaggage is SetBaggage for keys and values known to be valid.
// It panics otherwise.
func MustSetBaggage(ctx context.Context, key, value string) context.Context {
	out, err := SetBaggage(ctx, key, value)
	if err != nil {
		panic(err)
	}

	return out
}

// GetBaggage returns the baggage value of key, or "".
func GetBaggage(ctx context.Context, key string) string {
	return baggage.FromContext(ctx).Member(key).Value()
}

// DeleteBaggage returns ctx without key in its baggage.
func DeleteBaggage(ctx context.Context, key string) context.Context {
	return baggage.ContextWithBaggage(ctx, baggage.FromContext(ctx).DeleteMember(key))
}

// AllBaggage returns every baggage member as a map.
func AllBaggage(ctx context.Context) map[string]string {
	members := baggage.FromContext(ctx).Members()
	out := make(map[string]string, len(members))
	for _, m := range members {
		out[m.Key()] = m.Value()
	}

	return out
}

// baggageAttributes returns the configured baggage members present on ctx
// as prefixed span attributes.
func (i *Instrumentation) baggageAttributes(ctx context.Context) []attribute.KeyValue {
	if len(i.baggageKeys) == 0 {
		return nil
	}

	bag := baggage.FromContext(ctx)
	attrs := make([]attribute.KeyValue, 0, len(i.baggageKeys))
	for _, key := range i.baggageKeys {
		if m := bag.Member(key); m.Key() != "" {
			attrs = append(attrs, attribute.String(i.attrKey(key), m.Value()))
		}
	}

	return attrs
}
