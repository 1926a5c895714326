package otxhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var (
	// ErrDisabled is returned when telemetry or tracing is disabled.
	ErrDisabled = errors.New("otxhook: telemetry is disabled")
	// ErrLogsDisabled is returned when log export is disabled.
	ErrLogsDisabled = errors.New("otxhook: logs export is disabled")
	// ErrMetricsDisabled is returned when metrics export is disabled.
	ErrMetricsDisabled = errors.New("otxhook: metrics export is disabled")
	// ErrServiceNameRequired is returned when ServiceName is empty but telemetry is enabled.
	ErrServiceNameRequired = errors.New("otxhook: service name is required")
)

// NewTracerProvider builds a TracerProvider from cfg and installs it, and
// the configured propagator, as the OTel globals.
func NewTracerProvider(ctx context.Context, cfg *TelemetryConfig) (*sdktrace.TracerProvider, error) {
	if !cfg.IsEnabled() || !cfg.Traces.IsEnabled() {
		return nil, ErrDisabled
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := buildTraceExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(buildSampler(cfg.Sampling())),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(buildPropagator(cfg.Propagation))

	return tp, nil
}

// NewLoggerProvider builds the LoggerProvider that debug diagnostics are
// emitted to and installs it globally. Logs are opt-in.
func NewLoggerProvider(ctx context.Context, cfg *TelemetryConfig) (*sdklog.LoggerProvider, error) {
	if !cfg.IsEnabled() {
		return nil, ErrDisabled
	}
	if !cfg.Logs.IsEnabled() {
		return nil, ErrLogsDisabled
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := buildLogExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build log exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp)

	return lp, nil
}

// NewMeterProvider builds the MeterProvider hook metrics are recorded on and
// installs it globally. Metrics are opt-in.
func NewMeterProvider(ctx context.Context, cfg *TelemetryConfig) (*sdkmetric.MeterProvider, error) {
	if !cfg.IsEnabled() {
		return nil, ErrDisabled
	}
	if !cfg.Metrics.IsEnabled() {
		return nil, ErrMetricsDisabled
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := buildMetricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(normalizeMetricInterval(cfg.Metrics.Interval, 60*time.Second)),
		)),
	)
	otel.SetMeterProvider(mp)

	return mp, nil
}

// Telemetry bundles the providers built by [Setup] with the process-wide
// Instrumentation wired to them.
type Telemetry struct {
	Tracer          *sdktrace.TracerProvider
	Meter           *sdkmetric.MeterProvider
	Logger          *sdklog.LoggerProvider
	Instrumentation *Instrumentation
}

// Setup builds every enabled provider from cfg, then builds the hook
// Instrumentation on top of them and makes it the process default.
// Disabled log and metric pipelines are skipped; a disabled tracer is an
// error. opts are applied after the configured hook options.
func Setup(ctx context.Context, cfg *TelemetryConfig, opts ...Option) (*Telemetry, error) {
	tp, err := NewTracerProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	t := &Telemetry{Tracer: tp}

	t.Meter, err = NewMeterProvider(ctx, cfg)
	if err != nil && !errors.Is(err, ErrMetricsDisabled) {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}

	t.Logger, err = NewLoggerProvider(ctx, cfg)
	if err != nil && !errors.Is(err, ErrLogsDisabled) {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}

	base, err := cfg.HookOptions()
	if err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	base = append(base, WithTracerProvider(tp))
	if t.Logger != nil {
		base = append(base, WithLoggerProvider(t.Logger))
	}
	if t.Meter != nil && cfg.Hooks.MetricsEnabled() {
		base = append(base, WithMeterProvider(t.Meter))
	}

	t.Instrumentation, err = Init(append(base, opts...)...)
	if err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}

	return t, nil
}

// Shutdown flushes and stops every provider and clears the process default.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if t.Instrumentation != nil {
		if cur, err := Default(); err == nil && cur == t.Instrumentation {
			SetDefault(nil)
		}
	}

	var errs []error
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	if t.Meter != nil {
		errs = append(errs, t.Meter.Shutdown(ctx))
	}
	if t.Logger != nil {
		errs = append(errs, t.Logger.Shutdown(ctx))
	}

	return errors.Join(errs...)
}

func buildResource(ctx context.Context, cfg *TelemetryConfig) (*resource.Resource, error) {
	if cfg.ServiceName == "" {
		return nil, ErrServiceNameRequired
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
		semconv.DeploymentEnvironment(cfg.Environment),
	}
	for key, value := range cfg.ResourceAttributes {
		if key != "" {
			attrs = append(attrs, attribute.String(key, value))
		}
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	return res, nil
}

// normalizeMetricInterval treats sub-millisecond values as milliseconds, as
// numeric OTel env vars are.
func normalizeMetricInterval(value, defaultValue time.Duration) time.Duration {
	if value <= 0 {
		return defaultValue
	}
	if value < time.Millisecond {
		return normalizeDuration(value)
	}

	return value
}

func buildSampler(cfg *SamplingConfig) sdktrace.Sampler {
	if cfg == nil {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}

	switch cfg.Sampler {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(cfg.SamplerArg)
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerArg))
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}
