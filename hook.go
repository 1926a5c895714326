package otxhook

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// attrExceptionEscaped marks an exception event as having left the span's scope.
const attrExceptionEscaped = "exception.escaped"

// Invocation describes one call of a hooked operation as seen by the
// interception substrate.
type Invocation struct {
	// Target is the receiver, or nil for plain functions.
	Target any
	// Args are the call arguments in declaration order.
	Args []any
	// Class is the declaring type; empty for plain functions.
	Class string
	// Function is the method or function name.
	Function string
	// File and Line locate the declaration when known.
	File string
	Line int
}

// PreHandler runs before the hooked call. It returns the context the call
// and the matching PostHandler run with.
type PreHandler func(ctx context.Context, inv *Invocation) context.Context

// PostHandler runs after the hooked call with its result and error.
type PostHandler func(ctx context.Context, inv *Invocation, result any, err error)

// PreCallback extends the span under construction before it starts.
type PreCallback func(b *SpanBuilder, inv *Invocation)

// PostCallback inspects the finished call before its span ends.
type PostCallback func(span trace.Span, inv *Invocation, result any, err error)

// HookSpec declares how calls of one operation become spans.
type HookSpec struct {
	// Signature identifies the operation and names its parameters.
	Signature Signature
	// Class, when set, overrides Signature.Class in the operation identity.
	Class string
	// Params lists the arguments captured as attributes.
	Params []Param
	// ResultAttribute, when set, captures the return value under that name.
	ResultAttribute string
	// Pre and Post are optional extension callbacks.
	Pre  PreCallback
	Post PostCallback
}

// Handlers is the pre/post pair produced for one HookSpec.
type Handlers struct {
	Operation string
	Params    ResolvedParams
	Pre       PreHandler
	Post      PostHandler
}

// MakeHandlers resolves spec once and returns its pre/post handlers.
// It returns ErrMissingReflectionTarget when the spec names no function.
func (i *Instrumentation) MakeHandlers(spec HookSpec) (Handlers, error) {
	sig := spec.Signature
	if spec.Class != "" {
		sig.Class = spec.Class
	}
	if sig.Function == "" {
		return Handlers{}, fmt.Errorf("%w: hook declares no function", ErrMissingReflectionTarget)
	}

	op := sig.Operation()
	resolved := ResolveParams(sig, spec.Params)
	if i.debug {
		for _, p := range Unresolved(sig, spec.Params) {
			i.debugReport(context.Background(),
				fmt.Errorf("otxhook: %s declares no parameter %q, attribute %q is dropped", op, p.Name, p.Attribute))
		}
	}

	return Handlers{
		Operation: op,
		Params:    resolved,
		Pre:       i.preHandler(op, sig, resolved, spec.Pre),
		Post:      i.postHandler(op, spec.ResultAttribute, spec.Post),
	}, nil
}

// Hook produces the handlers for spec and installs them with in.
func (i *Instrumentation) Hook(in Installer, spec HookSpec) error {
	h, err := i.MakeHandlers(spec)
	if err != nil {
		return err
	}

	return in.Install(h.Operation, h.Pre, h.Post)
}

// MakeHook is [Instrumentation.MakeHandlers] on the process-wide instance.
func MakeHook(spec HookSpec) (Handlers, error) {
	inst, err := Default()
	if err != nil {
		return Handlers{}, err
	}

	return inst.MakeHandlers(spec)
}

// Hook is [Instrumentation.Hook] on the process-wide instance.
func Hook(in Installer, spec HookSpec) error {
	inst, err := Default()
	if err != nil {
		return err
	}

	return inst.Hook(in, spec)
}

func (i *Instrumentation) preHandler(op string, sig Signature, params ResolvedParams, cb PreCallback) PreHandler {
	return func(ctx context.Context, inv *Invocation) (out context.Context) {
		if ctx == nil {
			ctx = context.Background()
		}
		out = ctx

		var span trace.Span
		defer func() {
			if r := recover(); r != nil {
				if span != nil {
					span.End()
				}
				out = ctx
				i.recoverTo(ctx, "pre", op, r)
			}
		}()

		if inv == nil {
			inv = &Invocation{}
		}
		class, function := inv.Class, inv.Function
		if function == "" {
			class, function = sig.Class, sig.Function
		}
		file, line := inv.File, inv.Line
		if file == "" {
			file, line = sig.File, sig.Line
		}
		if inv.Function != function || inv.File != file || inv.Line != line {
			filled := *inv
			filled.Class, filled.Function = class, function
			filled.File, filled.Line = file, line
			inv = &filled
		}

		parent := i.scopes.Current(ctx)

		b := NewSpanBuilder(i.tracer, i.namer.Name(NameMethod(class, function)))
		b.onErr = func(err error) { i.debugReport(ctx, err) }
		b.SetParent(parent).SetSpanKind(i.kind.TraceKind())
		b.SetAttributes(codeAttributes(class, function, file, line)...)
		b.SetAttributes(attribute.String(i.attrKey(AttrOperation), op))

		for _, p := range params {
			if p.Index >= len(inv.Args) {
				continue
			}
			b.SetAttributes(i.encodeAttr(ctx, p.Attribute, inv.Args[p.Index]))
		}
		b.SetAttributes(i.baggageAttributes(parent)...)

		if cb != nil {
			i.runPreCallback(ctx, op, cb, b, inv)
		}

		_, span = b.Start()
		out, _ = i.scopes.Attach(parent, span, op)

		return out
	}
}

func (i *Instrumentation) postHandler(op, resultAttr string, cb PostCallback) PostHandler {
	return func(ctx context.Context, inv *Invocation, result any, err error) {
		// Only the scope opened by this hook's own pre handler is closed here.
		s, ok := i.scopes.Scope(ctx)
		if !ok || s.Operation() != op || !s.claim() {
			return
		}

		span := trace.SpanFromContext(s.Context())
		defer func() {
			if r := recover(); r != nil {
				i.recoverTo(ctx, "post", op, r)
			}
			span.End()
			i.scopes.Detach(s)
			i.metrics.record(s.Parent(), s.Operation(), s.started, err != nil)
		}()

		if inv == nil {
			inv = &Invocation{}
		}

		if resultAttr != "" {
			span.SetAttributes(i.encodeAttr(ctx, resultAttr, result))
		}

		if err != nil {
			recordFailure(span, err)
		}

		if cb != nil {
			cb(span, inv, result, err)
		}
	}
}

func (i *Instrumentation) runPreCallback(ctx context.Context, op string, cb PreCallback, b *SpanBuilder, inv *Invocation) {
	defer func() {
		if r := recover(); r != nil {
			i.recoverTo(ctx, "pre callback", op, r)
		}
	}()

	cb(b, inv)
}

func (i *Instrumentation) encodeAttr(ctx context.Context, name string, value any) attribute.KeyValue {
	v, err := Encode(value)
	if err != nil {
		i.debugReport(ctx, fmt.Errorf("otxhook: attribute %q: %w", name, err))
	}

	return attribute.KeyValue{Key: attribute.Key(i.attrKey(name)), Value: v}
}

// codeAttributes returns the standard code-location attributes.
func codeAttributes(class, function, file string, line int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	attrs = append(attrs, semconv.CodeFunction(function))
	if class != "" {
		attrs = append(attrs, semconv.CodeNamespace(class))
	}
	if file != "" {
		attrs = append(attrs, semconv.CodeFilepath(file))
	}
	if line > 0 {
		attrs = append(attrs, semconv.CodeLineNumber(line))
	}

	return attrs
}

// recordFailure records err as an escaped exception and marks the span failed.
func recordFailure(span trace.Span, err error) {
	span.RecordError(err, trace.WithAttributes(attribute.Bool(attrExceptionEscaped, true)))
	span.SetStatus(codes.Error, err.Error())
}
