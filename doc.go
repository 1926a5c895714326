// Package otxhook turns calls of instrumented operations into OpenTelemetry
// spans through pre/post hooks.
//
// # Overview
//
// An [Instrumentation] holds the tracer, an attribute prefix and the span
// kind shared by every hook it produces. For each hooked operation it builds
// a pair of handlers from a [HookSpec]:
//   - the pre handler opens a span named "Class::function", parented to the
//     caller's context, with the operation identity, code location and the
//     declared arguments as prefixed attributes
//   - the post handler records the return value when asked to, records a
//     failure as an escaped exception with an error status, and ends the span
//
// Handlers are registered with an [Installer]. [Table] is the in-process
// installer; the grpc, http and nats sub-packages route RPCs, requests and
// messages through a Table.
//
// # Quick Start
//
//	inst, err := otxhook.Init(
//	    otxhook.WithTracerProvider(tp),
//	    otxhook.WithName("svc"),
//	    otxhook.WithPrefix("cache"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	sig, err := otxhook.MethodSignature((*Cache)(nil), "Get", "ctx", "cid")
//	if err != nil {
//	    return err
//	}
//
//	hooks := otxhook.NewTable()
//	err = inst.Hook(hooks, otxhook.HookSpec{
//	    Signature:       sig,
//	    Params:          []otxhook.Param{otxhook.P("cid")},
//	    ResultAttribute: otxhook.AttrReturnValue,
//	})
//
//	found, err := otxhook.Invoke(ctx, hooks, sig.Operation(),
//	    &otxhook.Invocation{Target: c, Args: []any{ctx, cid}},
//	    func(ctx context.Context) (bool, error) { return c.Get(ctx, cid) })
//
// The span carries cache.operation, cache.cid and cache.returnValue.
//
// # Parameters
//
// Go keeps no parameter names at runtime, so a [Signature] pairs the
// reflected arity with declared names. [Param] entries naming no declared
// parameter are dropped; [WithDebug] reports them.
//
// # Values
//
// Scalars are stored as typed attributes, everything else as canonical JSON
// (see [Encode]). Values that cannot be encoded become a placeholder string
// and never fail the hooked call.
//
// # Context
//
// The active span travels on context.Context by default ([ContextScopes]).
// Substrates that cannot pass a context from the pre to the post handler use
// [StackScopes].
//
// # Configuration
//
// Providers and the instrumentation can be built from YAML and OTel
// environment variables:
//
//	enabled: true
//	serviceName: "svc"              # OTEL_SERVICE_NAME
//	traces:
//	  exporter: "otlp"              # OTEL_TRACES_EXPORTER
//	  sampling:
//	    sampler: "parentbased_always_on"
//	otlp:
//	  endpoint: "otel-collector:4317"
//	hooks:
//	  attributePrefix: "cache"      # OTXHOOK_ATTRIBUTE_PREFIX
//	  spanKind: "INTERNAL"          # OTXHOOK_SPAN_KIND
//
//	cfg, err := otxhook.LoadConfig("telemetry.yaml")
//	tel, err := otxhook.Setup(ctx, cfg)
//	defer tel.Shutdown(ctx)
package otxhook
