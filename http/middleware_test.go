package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arloliu/otxhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))

	return w
}

func TestMiddleware(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)))
	otel.SetTextMapPropagator(propagation.TraceContext{})

	w := serve(Middleware()(okHandler()))

	assert.Equal(t, http.StatusOK, w.Code)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "http.request", spans[0].Name)
}

func TestMiddlewareWithProviders(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	serve(MiddlewareWithProviders(tp, noop.NewMeterProvider(), propagation.TraceContext{})(okHandler()))

	require.Len(t, exporter.GetSpans(), 1)
}

func TestMiddlewareWithNilProviders(t *testing.T) {
	w := serve(MiddlewareWithProviders(nil, nil, nil)(okHandler()))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlerWithProviders_WrapsHooked(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	table := newHooks(t, tp, otxhook.SpanKindInternal, listOrders)

	h := HandlerWithProviders(Hooked(table, listOrders, okHandler()), "orders", tp, noop.NewMeterProvider(), propagation.TraceContext{})
	serve(h)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	hookSpan, requestSpan := spans[0], spans[1]
	assert.Equal(t, listOrders, hookSpan.Name)
	assert.Equal(t, "orders", requestSpan.Name)
	assert.Equal(t, requestSpan.SpanContext.TraceID(), hookSpan.SpanContext.TraceID())
	assert.Equal(t, requestSpan.SpanContext.SpanID(), hookSpan.Parent.SpanID())
}

func TestHandler(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)))

	serve(Handler(okHandler(), "orders"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "orders", spans[0].Name)
}
