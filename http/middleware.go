package http

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Handler wraps handler with otelhttp request spans and metrics on the
// global providers. Wrapped around [Hooked], the hook span becomes a child of
// the request span.
func Handler(handler http.Handler, operation string, opts ...otelhttp.Option) http.Handler {
	return otelhttp.NewHandler(handler, operation, opts...)
}

// HandlerWithProviders is Handler with explicit providers.
// Nil providers fall back to the globals.
func HandlerWithProviders(
	handler http.Handler,
	operation string,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
	opts ...otelhttp.Option,
) http.Handler {
	return otelhttp.NewHandler(handler, operation, append(providerOptions(tp, mp, prop), opts...)...)
}

// Middleware returns otelhttp middleware on the global providers.
func Middleware(opts ...otelhttp.Option) func(http.Handler) http.Handler {
	return otelhttp.NewMiddleware("http.request", opts...)
}

// MiddlewareWithProviders is Middleware with explicit providers.
// Nil providers fall back to the globals.
func MiddlewareWithProviders(
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
	opts ...otelhttp.Option,
) func(http.Handler) http.Handler {
	return otelhttp.NewMiddleware("http.request", append(providerOptions(tp, mp, prop), opts...)...)
}

func providerOptions(tp trace.TracerProvider, mp metric.MeterProvider, prop propagation.TextMapPropagator) []otelhttp.Option {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	return []otelhttp.Option{
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithMeterProvider(mp),
		otelhttp.WithPropagators(prop),
	}
}
