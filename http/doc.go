// Package http routes HTTP requests through hook tables.
//
// A route is an operation such as "OrdersAPI::list". Hooks built with
// [RequestSignature] can capture the request method, path, query and
// content length, and record the response status as the result:
//
//	hooks := otxhook.NewTable()
//	err := inst.Hook(hooks, otxhook.HookSpec{
//	    Signature:       otxhttp.RequestSignature("OrdersAPI", "list"),
//	    Params:          []otxhook.Param{otxhook.P(otxhttp.ParamPath)},
//	    ResultAttribute: "status",
//	})
//
//	mux.Handle("/orders", otxhttp.Hooked(hooks, "OrdersAPI::list", listOrders))
//
// On the client side, [HookedTransport] and [NewClient] with [WithHooks]
// do the same for outgoing requests and inject the trace context.
//
// The otelhttp handler and transport wrappers are re-exported for
// request-level spans and metrics alongside the hooks.
package http
