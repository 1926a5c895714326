package otxhook

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricHookCalls    = "otxhook.hook.calls"
	metricHookDuration = "otxhook.hook.duration"

	attrHookOperation = "hook.operation"
	attrHookOutcome   = "hook.outcome"

	outcomeOK    = "ok"
	outcomeError = "error"
)

// hookMetrics records one call and its duration per completed hooked
// invocation. A nil *hookMetrics records nothing.
type hookMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

func newHookMetrics(mp metric.MeterProvider, name string) (*hookMetrics, error) {
	meter := mp.Meter(name)

	calls, err := meter.Int64Counter(
		metricHookCalls,
		metric.WithDescription("Number of completed hooked invocations."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s counter: %w", metricHookCalls, err)
	}

	duration, err := meter.Float64Histogram(
		metricHookDuration,
		metric.WithDescription("Duration of hooked invocations, from pre to post handler."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s histogram: %w", metricHookDuration, err)
	}

	return &hookMetrics{calls: calls, duration: duration}, nil
}

func (m *hookMetrics) record(ctx context.Context, operation string, started time.Time, failed bool) {
	if m == nil {
		return
	}

	outcome := outcomeOK
	if failed {
		outcome = outcomeError
	}
	set := metric.WithAttributeSet(attribute.NewSet(
		attribute.String(attrHookOperation, operation),
		attribute.String(attrHookOutcome, outcome),
	))

	m.calls.Add(ctx, 1, set)
	m.duration.Record(ctx, time.Since(started).Seconds(), set)
}
