package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/arloliu/otxhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

const healthCheck = "/grpc.health.v1.Health/Check"

type getOrder struct {
	ID string `json:"id"`
}

func newHooks(t *testing.T, tp trace.TracerProvider, kind otxhook.SpanKind, params ...otxhook.Param) *otxhook.Table {
	t.Helper()

	inst, err := otxhook.New(
		otxhook.WithTracerProvider(tp),
		otxhook.WithName("grpc-test"),
		otxhook.WithPrefix("rpc"),
		otxhook.WithSpanKind(kind),
	)
	require.NoError(t, err)

	table := otxhook.NewTable()
	require.NoError(t, inst.Hook(table, otxhook.HookSpec{
		Signature: MethodSignature(healthCheck),
		Params:    params,
	}))

	return table
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}

	return m
}

func TestOperation(t *testing.T) {
	assert.Equal(t, "grpc.health.v1.Health::Check", Operation(healthCheck))
	assert.Equal(t, "Check", Operation("Check"))

	sig := MethodSignature("/orders.v1.Orders/Get")
	assert.Equal(t, "orders.v1.Orders", sig.Class)
	assert.Equal(t, "Get", sig.Function)
	assert.Equal(t, []string{RequestParam}, sig.Params)
	assert.Equal(t, "orders.v1.Orders::Get", sig.Operation())
}

func TestUnaryServerInterceptor(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	table := newHooks(t, tp, otxhook.SpanKindServer, otxhook.P(RequestParam))
	interceptor := UnaryServerInterceptor(table)

	info := &grpc.UnaryServerInfo{FullMethod: healthCheck}
	resp, err := interceptor(context.Background(), getOrder{ID: "o-1"}, info,
		func(_ context.Context, req any) (any, error) { return req, nil })
	require.NoError(t, err)
	assert.Equal(t, getOrder{ID: "o-1"}, resp)

	_, err = interceptor(context.Background(), getOrder{ID: "o-2"}, info,
		func(context.Context, any) (any, error) { return nil, errors.New("not found") })
	require.EqualError(t, err, "not found")

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	ok, failed := spans[0], spans[1]
	assert.Equal(t, "grpc.health.v1.Health::Check", ok.Name)
	assert.Equal(t, trace.SpanKindServer, ok.SpanKind)
	assert.Equal(t, attribute.StringValue(`{"id":"o-1"}`), attrMap(ok.Attributes)["rpc.request"])
	assert.Equal(t, codes.Error, failed.Status.Code)
}

func TestUnaryServerInterceptor_Unhooked(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	interceptor := UnaryServerInterceptor(newHooks(t, tp, otxhook.SpanKindServer))

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/other.Svc/Call"},
		func(context.Context, any) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Empty(t, exporter.GetSpans())
}

func TestUnaryServerInterceptor_ExtractsIncoming(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	interceptor := UnaryServerInterceptor(newHooks(t, tp, otxhook.SpanKindServer))

	md := metadata.Pairs("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: healthCheck},
		func(context.Context, any) (any, error) { return nil, nil })
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent.SpanID().String())
	assert.True(t, spans[0].Parent.IsRemote())
}

func TestHooksEndToEnd(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer(ServerOptions(newHooks(t, tp, otxhook.SpanKindServer))...)
	healthpb.RegisterHealthServer(s, health.NewServer())
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	dialOpts := append([]grpc.DialOption{
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, DialOptions(newHooks(t, tp, otxhook.SpanKindClient))...)

	conn, err := grpc.NewClient("passthrough://bufnet", dialOpts...)
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	server, client := spans[0], spans[1]
	assert.Equal(t, trace.SpanKindServer, server.SpanKind)
	assert.Equal(t, trace.SpanKindClient, client.SpanKind)
	assert.Equal(t, client.SpanContext.TraceID(), server.SpanContext.TraceID())
	assert.Equal(t, client.SpanContext.SpanID(), server.Parent.SpanID())
}

func TestStatsHandlers(t *testing.T) {
	tp := sdktrace.NewTracerProvider()

	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer(
		grpc.StatsHandler(ServerHandlerWithProviders(tp, noop.NewMeterProvider(), propagation.TraceContext{})),
	)
	healthpb.RegisterHealthServer(s, health.NewServer())
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient("passthrough://bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(ClientHandlerWithProviders(nil, nil, nil)),
	)
	require.NoError(t, err)
	defer conn.Close()

	_, err = healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)

	assert.NotNil(t, ServerHandler())
	assert.NotNil(t, ClientHandler())
}
