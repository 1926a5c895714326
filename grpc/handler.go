package grpc

import (
	"context"
	"strings"

	"github.com/arloliu/otxhook"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/stats"
)

// RequestParam is the parameter name under which RPC requests are declared.
const RequestParam = "request"

// Operation returns the operation identity of a full gRPC method name:
// "/pkg.Service/Method" becomes "pkg.Service::Method".
func Operation(fullMethod string) string {
	service, method := splitFullMethod(fullMethod)
	return otxhook.NameMethod(service, method)
}

// MethodSignature describes a unary RPC as a hookable operation with a single
// parameter, the request message.
func MethodSignature(fullMethod string) otxhook.Signature {
	service, method := splitFullMethod(fullMethod)

	return otxhook.Signature{
		Class:    service,
		Function: method,
		Params:   []string{RequestParam},
	}
}

func splitFullMethod(fullMethod string) (service, method string) {
	name := strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[:i], name[i+1:]
	}

	return "", name
}

func invocation(target any, fullMethod string, args ...any) *otxhook.Invocation {
	service, method := splitFullMethod(fullMethod)
	return &otxhook.Invocation{Target: target, Args: args, Class: service, Function: method}
}

// extractIncoming parents an RPC to the caller's trace when ctx carries no
// span yet, as when no stats handler runs ahead of the interceptor.
func extractIncoming(ctx context.Context) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		return otxhook.ExtractGRPC(ctx, md)
	}

	return ctx
}

// UnaryServerInterceptor runs every unary RPC through the hooks installed in
// t under its [Operation] identity. The request is argument 0 and the
// response is the result. Methods without hooks pass straight through.
func UnaryServerInterceptor(t *otxhook.Table) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		op := Operation(info.FullMethod)
		if !t.Installed(op) {
			return handler(ctx, req)
		}

		return t.Call(extractIncoming(ctx), op, invocation(info.Server, info.FullMethod, req),
			func(ctx context.Context) (any, error) { return handler(ctx, req) })
	}
}

// StreamServerInterceptor runs every streaming RPC through the hooks
// installed in t. Streams have no arguments and no result.
func StreamServerInterceptor(t *otxhook.Table) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		op := Operation(info.FullMethod)
		if !t.Installed(op) {
			return handler(srv, ss)
		}

		_, err := t.Call(extractIncoming(ss.Context()), op, invocation(srv, info.FullMethod),
			func(ctx context.Context) (any, error) {
				return nil, handler(srv, &serverStream{ServerStream: ss, ctx: ctx})
			})

		return err
	}
}

type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *serverStream) Context() context.Context { return s.ctx }

// UnaryClientInterceptor runs every outgoing unary RPC through the hooks
// installed in t and injects the resulting trace context into the outgoing
// metadata. The reply message is the result of a successful call. A failed
// call reports a nil result: the reply may be partially filled and is not
// captured.
func UnaryClientInterceptor(t *otxhook.Table) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		op := Operation(method)
		if !t.Installed(op) {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		_, err := t.Call(ctx, op, invocation(cc, method, req), func(ctx context.Context) (any, error) {
			if err := invoker(injectOutgoing(ctx), method, req, reply, cc, opts...); err != nil {
				return nil, err
			}

			return reply, nil
		})

		return err
	}
}

func injectOutgoing(ctx context.Context) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	otxhook.InjectGRPC(ctx, md)

	return metadata.NewOutgoingContext(ctx, md)
}

// ServerOptions returns the server options that install t's hooks on unary
// and streaming RPCs.
func ServerOptions(t *otxhook.Table) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(t)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(t)),
	}
}

// DialOptions returns the dial options that install t's hooks on outgoing
// unary RPCs.
func DialOptions(t *otxhook.Table) []grpc.DialOption {
	return []grpc.DialOption{grpc.WithChainUnaryInterceptor(UnaryClientInterceptor(t))}
}

// ServerHandler returns an otelgrpc stats.Handler for server-side RPC spans
// and metrics on the global providers. It composes with the hook
// interceptors: hook spans become children of the RPC span.
func ServerHandler(opts ...otelgrpc.Option) stats.Handler {
	return otelgrpc.NewServerHandler(opts...)
}

// ServerHandlerWithProviders is ServerHandler with explicit providers.
// Nil providers fall back to the globals.
func ServerHandlerWithProviders(
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
	opts ...otelgrpc.Option,
) stats.Handler {
	return otelgrpc.NewServerHandler(append(providerOptions(tp, mp, prop), opts...)...)
}

// ClientHandler returns an otelgrpc stats.Handler for client-side RPC spans
// and metrics on the global providers.
func ClientHandler(opts ...otelgrpc.Option) stats.Handler {
	return otelgrpc.NewClientHandler(opts...)
}

// ClientHandlerWithProviders is ClientHandler with explicit providers.
// Nil providers fall back to the globals.
func ClientHandlerWithProviders(
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
	opts ...otelgrpc.Option,
) stats.Handler {
	return otelgrpc.NewClientHandler(append(providerOptions(tp, mp, prop), opts...)...)
}

func providerOptions(tp trace.TracerProvider, mp metric.MeterProvider, prop propagation.TextMapPropagator) []otelgrpc.Option {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	return []otelgrpc.Option{
		otelgrpc.WithTracerProvider(tp),
		otelgrpc.WithMeterProvider(mp),
		otelgrpc.WithPropagators(prop),
	}
}
