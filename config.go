//revive:disable:line-length-limit
package otxhook

import (
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
)

// TelemetryConfig configures the OpenTelemetry providers and the hook
// instrumentation built on them.
// Environment variable names follow the OTel specification:
// https://opentelemetry.io/docs/specs/otel/configuration/sdk-environment-variables/
type TelemetryConfig struct {
	// Enabled controls whether providers are built at all.
	Enabled *bool `yaml:"enabled" default:"false" env:"OTXHOOK_ENABLED"`

	// ServiceName identifies the service. Maps to OTEL_SERVICE_NAME.
	// Also the instrumentation name when Hooks.Name is empty.
	ServiceName string `yaml:"serviceName" env:"OTEL_SERVICE_NAME" validate:"required_if=Enabled true"`

	// Version is the service version, used in the service.version resource attribute.
	Version string `yaml:"version" env:"OTEL_SERVICE_VERSION"`

	// Environment is used in the deployment.environment resource attribute.
	Environment string `yaml:"environment" env:"OTEL_DEPLOYMENT_ENVIRONMENT" default:"development"`

	// ResourceAttributes contains additional resource attributes.
	// Maps to OTEL_RESOURCE_ATTRIBUTES (comma-separated key=value pairs).
	ResourceAttributes map[string]string `yaml:"resourceAttributes,omitempty" env:"OTEL_RESOURCE_ATTRIBUTES"`

	// OTLP holds exporter settings shared by traces, metrics and logs.
	OTLP *OTLPConfig `yaml:"otlp,omitempty"`

	// Traces configures the tracing subsystem.
	Traces *TracesConfig `yaml:"traces,omitempty"`

	// Logs configures the OTel log bridge that debug diagnostics go to.
	Logs *LogsConfig `yaml:"logs,omitempty"`

	// Metrics configures the metrics subsystem used by hook metrics.
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`

	// Propagation configures context propagation. Maps to OTEL_PROPAGATORS.
	Propagation *PropConfig `yaml:"propagation,omitempty"`

	// Hooks configures the hook instrumentation.
	Hooks *HookConfig `yaml:"hooks,omitempty"`
}

// HookConfig configures an [Instrumentation].
type HookConfig struct {
	// Name is the instrumentation (tracer) name. Defaults to the service name.
	Name string `yaml:"name" env:"OTXHOOK_NAME"`

	// AttributePrefix namespaces every attribute the hooks set.
	AttributePrefix string `yaml:"attributePrefix" env:"OTXHOOK_ATTRIBUTE_PREFIX"`

	// SpanKind is the kind of every hook span.
	// Options: "INTERNAL", "CLIENT", "SERVER", "PRODUCER", "CONSUMER".
	SpanKind string `yaml:"spanKind" env:"OTXHOOK_SPAN_KIND" default:"INTERNAL" validate:"omitempty,oneof=INTERNAL CLIENT SERVER PRODUCER CONSUMER internal client server producer consumer"`

	// Debug reports dropped parameters and encoding failures.
	Debug *bool `yaml:"debug" env:"OTXHOOK_DEBUG" default:"false"`

	// Metrics enables the hook call counter and duration histogram on the
	// global MeterProvider.
	Metrics *bool `yaml:"metrics" env:"OTXHOOK_METRICS" default:"false"`

	// BaggageKeys lists baggage members copied onto hook spans.
	BaggageKeys []string `yaml:"baggageKeys,omitempty"`
}

// IsDebug returns true if debug diagnostics are enabled.
func (c *HookConfig) IsDebug() bool {
	return c != nil && c.Debug != nil && *c.Debug
}

// MetricsEnabled returns true if hook metrics are enabled.
func (c *HookConfig) MetricsEnabled() bool {
	return c != nil && c.Metrics != nil && *c.Metrics
}

// OTLPConfig contains shared OTLP exporter settings.
type OTLPConfig struct {
	// Endpoint is the collector endpoint. Maps to OTEL_EXPORTER_OTLP_ENDPOINT.
	//   - gRPC: "host:port" (e.g., "localhost:4317"), no scheme.
	//   - HTTP: full URL (e.g., "http://localhost:4318/v1/traces").
	Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`

	// Insecure disables TLS. Maps to OTEL_EXPORTER_OTLP_INSECURE.
	Insecure *bool `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	// Headers adds request headers. Maps to OTEL_EXPORTER_OTLP_HEADERS.
	// Avoid logging this value, as it may contain sensitive credentials.
	Headers map[string]string `yaml:"headers,omitempty" env:"OTEL_EXPORTER_OTLP_HEADERS"`

	// Protocol is "grpc", "http/protobuf" or "http". Maps to OTEL_EXPORTER_OTLP_PROTOCOL.
	Protocol string `yaml:"protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"grpc" validate:"oneof=grpc http/protobuf http"`

	// Timeout bounds exporter requests. Maps to OTEL_EXPORTER_OTLP_TIMEOUT.
	Timeout time.Duration `yaml:"timeout" env:"OTEL_EXPORTER_OTLP_TIMEOUT" default:"10s" validate:"gte=0"`

	// Compression is "gzip" or "none". Maps to OTEL_EXPORTER_OTLP_COMPRESSION.
	Compression string `yaml:"compression,omitempty" env:"OTEL_EXPORTER_OTLP_COMPRESSION" validate:"omitempty,oneof=gzip none"`
}

// IsInsecure returns true if insecure connection is enabled.
func (c *OTLPConfig) IsInsecure() bool {
	return c == nil || c.Insecure == nil || *c.Insecure
}

// TracesConfig configures the tracing subsystem.
type TracesConfig struct {
	// Enabled controls whether tracing is active. Defaults to true.
	Enabled *bool `yaml:"enabled" default:"true"`

	// Exporter is "otlp", "console", "stdout" or "none". Maps to OTEL_TRACES_EXPORTER.
	Exporter string `yaml:"exporter" env:"OTEL_TRACES_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`

	// Endpoint overrides OTLP.Endpoint for traces.
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`

	// Sampling configures the trace sampling strategy.
	Sampling *SamplingConfig `yaml:"sampling,omitempty"`
}

// IsEnabled returns true if tracing is enabled.
func (c *TracesConfig) IsEnabled() bool {
	return c == nil || c.Enabled == nil || *c.Enabled
}

// LogsConfig configures the OTel log bridge. Opt-in.
type LogsConfig struct {
	Enabled  *bool  `yaml:"enabled" default:"false"`
	Exporter string `yaml:"exporter" env:"OTEL_LOGS_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"`
}

// IsEnabled returns true if OTel log export is enabled.
func (c *LogsConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// MetricsConfig configures the metrics subsystem. Opt-in.
type MetricsConfig struct {
	Enabled  *bool  `yaml:"enabled" default:"false"`
	Exporter string `yaml:"exporter" env:"OTEL_METRICS_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"`

	// Interval is the periodic reader export interval.
	// Maps to OTEL_METRIC_EXPORT_INTERVAL (milliseconds if numeric).
	Interval time.Duration `yaml:"interval,omitempty" env:"OTEL_METRIC_EXPORT_INTERVAL" default:"60s" validate:"omitempty,gt=0"`
}

// IsEnabled returns true if metrics collection is enabled.
func (c *MetricsConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// SamplingConfig configures the trace sampler.
// Maps to OTEL_TRACES_SAMPLER and OTEL_TRACES_SAMPLER_ARG.
type SamplingConfig struct {
	Sampler    string  `yaml:"sampler" env:"OTEL_TRACES_SAMPLER" default:"parentbased_always_on" validate:"oneof=always_on always_off traceidratio parentbased_always_on parentbased_always_off parentbased_traceidratio"`
	SamplerArg float64 `yaml:"samplerArg" env:"OTEL_TRACES_SAMPLER_ARG" default:"1.0" validate:"gte=0,lte=1"`
}

// PropConfig configures context propagation.
type PropConfig struct {
	// Propagators is a comma-separated list. Maps to OTEL_PROPAGATORS.
	// Defaults to "tracecontext,baggage".
	Propagators string `yaml:"propagators" env:"OTEL_PROPAGATORS" default:"tracecontext,baggage"`
}

// HasTraceContext returns true if the tracecontext propagator is enabled.
func (c *PropConfig) HasTraceContext() bool {
	if c == nil || c.Propagators == "" {
		return true
	}

	return slices.Contains(splitList(c.Propagators), "tracecontext")
}

// HasBaggage returns true if the baggage propagator is enabled.
func (c *PropConfig) HasBaggage() bool {
	if c == nil || c.Propagators == "" {
		return true
	}

	return slices.Contains(splitList(c.Propagators), "baggage")
}

func splitList(list string) []string {
	var result []string
	for p := range strings.SplitSeq(list, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}

	return result
}

// IsEnabled returns true if telemetry is enabled.
func (c *TelemetryConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// Sampling returns the effective sampling config, or nil for the default.
func (c *TelemetryConfig) Sampling() *SamplingConfig {
	if c == nil || c.Traces == nil {
		return nil
	}

	return c.Traces.Sampling
}

// HookOptions translates the Hooks section into Instrumentation options.
// The instrumentation name falls back to ServiceName.
func (c *TelemetryConfig) HookOptions() ([]Option, error) {
	var h HookConfig
	if c != nil && c.Hooks != nil {
		h = *c.Hooks
	}

	kind := SpanKindInternal
	if h.SpanKind != "" {
		k, err := ParseSpanKind(h.SpanKind)
		if err != nil {
			return nil, err
		}
		kind = k
	}

	name := h.Name
	if name == "" && c != nil {
		name = c.ServiceName
	}

	opts := []Option{
		WithName(name),
		WithPrefix(h.AttributePrefix),
		WithSpanKind(kind),
		WithDebug(h.IsDebug()),
	}
	if c != nil && c.Version != "" {
		opts = append(opts, WithVersion(c.Version))
	}
	if h.MetricsEnabled() {
		opts = append(opts, WithMeterProvider(otel.GetMeterProvider()))
	}
	if len(h.BaggageKeys) > 0 {
		opts = append(opts, WithBaggageAttributes(h.BaggageKeys...))
	}

	return opts, nil
}

// NewFromConfig builds an Instrumentation from cfg. opts are applied after
// the configured ones and win over them.
func NewFromConfig(cfg *TelemetryConfig, opts ...Option) (*Instrumentation, error) {
	base, err := cfg.HookOptions()
	if err != nil {
		return nil, err
	}

	return New(append(base, opts...)...)
}

// boolPtr returns a pointer to the given boolean value.
func boolPtr(v bool) *bool { return &v }
