package otxhook

import (
	"fmt"
	"sync/atomic"

	"github.com/arloliu/otxhook/internal/tracker"
	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultInstrumentationName is the tracer name used when a TracerProvider is
// supplied without a name.
const DefaultInstrumentationName = "github.com/arloliu/otxhook"

// Attribute names set by the adapters, before prefixing.
const (
	AttrOperation   = "operation"
	AttrReturnValue = "returnValue"
)

// Instrumentation is the configuration shared by every hook it produces: the
// tracer, the attribute prefix and the span kind. It is immutable once built
// and safe for concurrent use.
type Instrumentation struct {
	name        string
	tracer      trace.Tracer
	prefix      string
	kind        SpanKind
	namer       SpanNamer
	scopes      ContextPropagator
	debug       bool
	logger      otellog.Logger
	metrics     *hookMetrics
	baggageKeys []string
}

type options struct {
	tp          trace.TracerProvider
	name        string
	version     string
	prefix      string
	kind        SpanKind
	namer       SpanNamer
	scopes      ContextPropagator
	debug       bool
	lp          otellog.LoggerProvider
	mp          metric.MeterProvider
	baggageKeys []string
}

// Option configures an Instrumentation.
type Option func(*options)

// WithTracerProvider sets the provider spans are created from.
// Without it the global provider is used and a name is required.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tp = tp
	}
}

// WithName sets the instrumentation (tracer) name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithVersion sets the instrumentation version reported with the tracer.
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = version
	}
}

// WithPrefix sets the attribute prefix. Keys become "prefix.key".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithSpanKind sets the kind of every span opened by the instrumentation.
// Default is SpanKindInternal.
func WithSpanKind(kind SpanKind) Option {
	return func(o *options) {
		o.kind = kind
	}
}

// WithNamer sets how operation identities become span names.
func WithNamer(n SpanNamer) Option {
	return func(o *options) {
		o.namer = n
	}
}

// WithContextPropagator replaces the scope propagation mechanism.
// Default is [ContextScopes].
func WithContextPropagator(p ContextPropagator) Option {
	return func(o *options) {
		o.scopes = p
	}
}

// WithDebug enables diagnostics: parameter spec entries that match no
// declared parameter and values that fail to encode are reported through
// otel.Handle and as warning log records. Hook behavior is unchanged.
func WithDebug(enabled bool) Option {
	return func(o *options) {
		o.debug = enabled
	}
}

// WithLoggerProvider sets the OTel LoggerProvider debug records go to.
// Default is the global LoggerProvider.
func WithLoggerProvider(lp otellog.LoggerProvider) Option {
	return func(o *options) {
		o.lp = lp
	}
}

// WithMeterProvider enables hook metrics: a call counter and a duration
// histogram per operation.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.mp = mp
	}
}

// WithBaggageAttributes copies the named baggage members of the caller's
// context onto every hook span as prefixed attributes.
func WithBaggageAttributes(keys ...string) Option {
	return func(o *options) {
		o.baggageKeys = append(o.baggageKeys, keys...)
	}
}

// New builds an Instrumentation.
//
// It returns ErrConfiguration when neither a TracerProvider nor a name is
// given, or when the span kind is not one of the five recognized kinds.
// Without a TracerProvider the global one is used, keyed by the name.
func New(opts ...Option) (*Instrumentation, error) {
	o := options{kind: SpanKindInternal}
	for _, opt := range opts {
		opt(&o)
	}

	if o.tp == nil && o.name == "" {
		return nil, fmt.Errorf("%w: a tracer provider or an instrumentation name is required", ErrConfiguration)
	}
	if !o.kind.Valid() {
		return nil, fmt.Errorf("%w: unknown span kind %q", ErrConfiguration, o.kind)
	}

	if o.tp == nil {
		o.tp = otel.GetTracerProvider()
	}
	if o.name == "" {
		o.name = DefaultInstrumentationName
	}
	if o.namer == nil {
		o.namer = DefaultNamer{}
	}
	if o.scopes == nil {
		o.scopes = ContextScopes{}
	}

	var tracerOpts []trace.TracerOption
	if o.version != "" {
		tracerOpts = append(tracerOpts, trace.WithInstrumentationVersion(o.version))
	}

	inst := &Instrumentation{
		name:        o.name,
		tracer:      o.tp.Tracer(o.name, tracerOpts...),
		prefix:      o.prefix,
		kind:        o.kind,
		namer:       o.namer,
		scopes:      o.scopes,
		debug:       o.debug,
		baggageKeys: o.baggageKeys,
	}

	if o.debug {
		if o.lp == nil {
			o.lp = global.GetLoggerProvider()
		}
		inst.logger = o.lp.Logger(o.name)
	}

	if o.mp != nil {
		m, err := newHookMetrics(o.mp, o.name)
		if err != nil {
			return nil, err
		}
		inst.metrics = m
	}

	return inst, nil
}

// Name returns the instrumentation name.
func (i *Instrumentation) Name() string { return i.name }

// Tracer returns the tracer spans are started from.
func (i *Instrumentation) Tracer() trace.Tracer { return i.tracer }

// Prefix returns the attribute prefix.
func (i *Instrumentation) Prefix() string { return i.prefix }

// SpanKind returns the kind of spans opened by the instrumentation.
func (i *Instrumentation) SpanKind() SpanKind { return i.kind }

// AttributeName returns name qualified with the attribute prefix:
// "prefix.name", or name itself when the prefix is empty.
// It returns ErrInvalidArgument for an empty name.
func (i *Instrumentation) AttributeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: attribute name must not be empty", ErrInvalidArgument)
	}

	return i.attrKey(name), nil
}

func (i *Instrumentation) attrKey(name string) string {
	if i.prefix == "" {
		return name
	}

	return i.prefix + "." + name
}

var defaultInstrumentation atomic.Pointer[Instrumentation]

// Init builds the process-wide Instrumentation and makes it the default for
// [Default], [MakeHook], [Hook] and the span helpers such as [Start].
// Calling Init again replaces the previous instance as a whole; callers must
// not race it against hooked calls.
func Init(opts ...Option) (*Instrumentation, error) {
	inst, err := New(opts...)
	if err != nil {
		return nil, err
	}

	SetDefault(inst)

	return inst, nil
}

// SetDefault installs inst as the process-wide Instrumentation.
// A nil inst clears it.
func SetDefault(inst *Instrumentation) {
	if inst == nil {
		defaultInstrumentation.Store(nil)
		tracker.Reset()

		return
	}

	defaultInstrumentation.Store(inst)
	tracker.Set(inst.tracer, inst.namer, inst.kind.TraceKind())
}

// Default returns the process-wide Instrumentation, or ErrNotInitialized
// before [Init].
func Default() (*Instrumentation, error) {
	inst := defaultInstrumentation.Load()
	if inst == nil {
		return nil, ErrNotInitialized
	}

	return inst, nil
}

// AttributeName qualifies name with the process-wide attribute prefix.
func AttributeName(name string) (string, error) {
	inst, err := Default()
	if err != nil {
		return "", err
	}

	return inst.AttributeName(name)
}
