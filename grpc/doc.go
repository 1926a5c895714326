// Package grpc routes gRPC calls through hook tables.
//
// Each RPC is an operation identified as "pkg.Service::Method". Hooks built
// with [MethodSignature] capture the request as argument "request" and the
// response as the result:
//
//	hooks := otxhook.NewTable()
//	err := inst.Hook(hooks, otxhook.HookSpec{
//	    Signature: otxgrpc.MethodSignature("/orders.v1.Orders/Get"),
//	    Params:    []otxhook.Param{otxhook.P(otxgrpc.RequestParam)},
//	})
//
//	server := grpc.NewServer(otxgrpc.ServerOptions(hooks)...)
//	conn, err := grpc.NewClient(target, otxgrpc.DialOptions(clientHooks)...)
//
// The otelgrpc stats handlers are re-exported for RPC-level spans and
// metrics alongside the hooks.
package grpc
