package otxhook

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// exporterParams are the effective settings of one signal's exporter.
type exporterParams struct {
	Type        string // "otlp", "console", "nop"
	Protocol    string // "grpc", "http/protobuf"
	Endpoint    string
	Headers     map[string]string
	Timeout     time.Duration
	Compression string
	Insecure    bool
}

func (p exporterParams) useHTTP() bool {
	return p.Protocol == "http/protobuf" || p.Protocol == "http"
}

// resolveExporterParams merges the shared OTLP settings with the signal's
// own exporter type and endpoint override.
func resolveExporterParams(cfg *TelemetryConfig, typ, endpoint string) exporterParams {
	p := exporterParams{
		Type:     normalizeExporterType(typ),
		Protocol: "grpc",
		Endpoint: "localhost:4317",
		Timeout:  10 * time.Second,
		Insecure: true,
	}

	if cfg != nil && cfg.OTLP != nil {
		o := cfg.OTLP
		if o.Endpoint != "" {
			p.Endpoint = o.Endpoint
		}
		if o.Protocol != "" {
			p.Protocol = o.Protocol
		}
		if o.Timeout > 0 {
			p.Timeout = normalizeDuration(o.Timeout)
		}
		p.Headers = o.Headers
		p.Compression = o.Compression
		p.Insecure = o.IsInsecure()
	}
	if endpoint != "" {
		p.Endpoint = endpoint
	}

	return p
}

// selectExporter dispatches on the exporter type. Unknown types fall back to OTLP.
func selectExporter[E any](p exporterParams, console func() (E, error), nop E, otlp func() (E, error)) (E, error) {
	switch p.Type {
	case "console":
		return console()
	case "none", "nop":
		return nop, nil
	default:
		return otlp()
	}
}

func buildTraceExporter(ctx context.Context, cfg *TelemetryConfig) (sdktrace.SpanExporter, error) {
	var typ, endpoint string
	if cfg.Traces != nil {
		typ, endpoint = cfg.Traces.Exporter, cfg.Traces.Endpoint
	}
	p := resolveExporterParams(cfg, typ, endpoint)

	return selectExporter[sdktrace.SpanExporter](p,
		func() (sdktrace.SpanExporter, error) { return stdouttrace.New(stdouttrace.WithPrettyPrint()) },
		nopSpanExporter{},
		func() (sdktrace.SpanExporter, error) {
			if p.useHTTP() {
				opts := buildHTTPOptions(p,
					otlptracehttp.WithEndpoint,
					otlptracehttp.WithEndpointURL,
					otlptracehttp.WithHeaders,
					otlptracehttp.WithTimeout,
					otlptracehttp.WithInsecure,
					func() otlptracehttp.Option { return otlptracehttp.WithCompression(otlptracehttp.GzipCompression) },
				)

				return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
			}

			opts := buildGRPCOptions(p,
				otlptracegrpc.WithEndpoint,
				otlptracegrpc.WithHeaders,
				otlptracegrpc.WithTimeout,
				otlptracegrpc.WithInsecure,
				func() otlptracegrpc.Option { return otlptracegrpc.WithCompressor("gzip") },
			)

			return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
		},
	)
}

func buildLogExporter(ctx context.Context, cfg *TelemetryConfig) (sdklog.Exporter, error) {
	var typ, endpoint string
	if cfg.Logs != nil {
		typ, endpoint = cfg.Logs.Exporter, cfg.Logs.Endpoint
	}
	p := resolveExporterParams(cfg, typ, endpoint)

	return selectExporter[sdklog.Exporter](p,
		func() (sdklog.Exporter, error) { return stdoutlog.New(stdoutlog.WithPrettyPrint()) },
		nopLogExporter{},
		func() (sdklog.Exporter, error) {
			if p.useHTTP() {
				return otlploghttp.New(ctx, buildHTTPOptions(p,
					otlploghttp.WithEndpoint,
					otlploghttp.WithEndpointURL,
					otlploghttp.WithHeaders,
					otlploghttp.WithTimeout,
					otlploghttp.WithInsecure,
					func() otlploghttp.Option { return otlploghttp.WithCompression(otlploghttp.GzipCompression) },
				)...)
			}

			return otlploggrpc.New(ctx, buildGRPCOptions(p,
				otlploggrpc.WithEndpoint,
				otlploggrpc.WithHeaders,
				otlploggrpc.WithTimeout,
				otlploggrpc.WithInsecure,
				func() otlploggrpc.Option { return otlploggrpc.WithCompressor("gzip") },
			)...)
		},
	)
}

func buildMetricExporter(ctx context.Context, cfg *TelemetryConfig) (sdkmetric.Exporter, error) {
	var typ, endpoint string
	if cfg.Metrics != nil {
		typ, endpoint = cfg.Metrics.Exporter, cfg.Metrics.Endpoint
	}
	p := resolveExporterParams(cfg, typ, endpoint)

	return selectExporter[sdkmetric.Exporter](p,
		func() (sdkmetric.Exporter, error) { return stdoutmetric.New(stdoutmetric.WithPrettyPrint()) },
		nopMetricExporter{},
		func() (sdkmetric.Exporter, error) {
			if p.useHTTP() {
				return otlpmetrichttp.New(ctx, buildHTTPOptions(p,
					otlpmetrichttp.WithEndpoint,
					otlpmetrichttp.WithEndpointURL,
					otlpmetrichttp.WithHeaders,
					otlpmetrichttp.WithTimeout,
					otlpmetrichttp.WithInsecure,
					func() otlpmetrichttp.Option { return otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression) },
				)...)
			}

			return otlpmetricgrpc.New(ctx, buildGRPCOptions(p,
				otlpmetricgrpc.WithEndpoint,
				otlpmetricgrpc.WithHeaders,
				otlpmetricgrpc.WithTimeout,
				otlpmetricgrpc.WithInsecure,
				func() otlpmetricgrpc.Option { return otlpmetricgrpc.WithCompressor("gzip") },
			)...)
		},
	)
}

type nopSpanExporter struct{}

func (nopSpanExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (nopSpanExporter) Shutdown(context.Context) error                             { return nil }

type nopLogExporter struct{}

func (nopLogExporter) Export(context.Context, []sdklog.Record) error { return nil }
func (nopLogExporter) Shutdown(context.Context) error                { return nil }
func (nopLogExporter) ForceFlush(context.Context) error              { return nil }

type nopMetricExporter struct{}

func (nopMetricExporter) Export(context.Context, *metricdata.ResourceMetrics) error { return nil }
func (nopMetricExporter) ForceFlush(context.Context) error                          { return nil }
func (nopMetricExporter) Shutdown(context.Context) error                            { return nil }

func (nopMetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (nopMetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func normalizeExporterType(value string) string {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "":
		return "otlp"
	case "stdout":
		return "console"
	case "noop":
		return "nop"
	default:
		return v
	}
}

// normalizeDuration treats sub-millisecond values as milliseconds, as
// numeric OTel env vars are.
func normalizeDuration(value time.Duration) time.Duration {
	if value > 0 && value < time.Millisecond {
		//nolint:durationcheck // numeric env values are milliseconds
		return value * time.Millisecond
	}

	return value
}

func isHTTPScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

func buildHTTPOptions[T any](
	p exporterParams,
	withEndpoint func(string) T,
	withEndpointURL func(string) T,
	withHeaders func(map[string]string) T,
	withTimeout func(time.Duration) T,
	withInsecure func() T,
	withCompression func() T,
) []T {
	var opts []T
	if u, err := url.Parse(p.Endpoint); err == nil && isHTTPScheme(u.Scheme) {
		opts = append(opts, withEndpointURL(p.Endpoint))
	} else {
		opts = append(opts, withEndpoint(p.Endpoint))
	}

	return appendCommonOptions(opts, p, withHeaders, withTimeout, withInsecure, withCompression)
}

func buildGRPCOptions[T any](
	p exporterParams,
	withEndpoint func(string) T,
	withHeaders func(map[string]string) T,
	withTimeout func(time.Duration) T,
	withInsecure func() T,
	withCompression func() T,
) []T {
	return appendCommonOptions([]T{withEndpoint(p.Endpoint)}, p, withHeaders, withTimeout, withInsecure, withCompression)
}

func appendCommonOptions[T any](
	opts []T,
	p exporterParams,
	withHeaders func(map[string]string) T,
	withTimeout func(time.Duration) T,
	withInsecure func() T,
	withCompression func() T,
) []T {
	if len(p.Headers) > 0 {
		opts = append(opts, withHeaders(p.Headers))
	}
	if p.Timeout > 0 {
		opts = append(opts, withTimeout(p.Timeout))
	}
	if p.Insecure {
		opts = append(opts, withInsecure())
	}
	if p.Compression == "gzip" {
		opts = append(opts, withCompression())
	}

	return opts
}
