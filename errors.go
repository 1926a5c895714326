package otxhook

import "errors"

// ErrConfiguration is returned when an Instrumentation cannot be built from
// the given options: neither a TracerProvider nor a name was supplied, or the
// span kind is not recognized.
var ErrConfiguration = errors.New("otxhook: invalid configuration")

// ErrNotInitialized is returned when the process-wide instrumentation is used
// before [Init] has been called.
var ErrNotInitialized = errors.New("otxhook: instrumentation is not initialized")

// ErrInvalidArgument is returned for empty attribute names, empty operation
// identities and similar caller mistakes.
var ErrInvalidArgument = errors.New("otxhook: invalid argument")

// ErrMissingReflectionTarget is returned at hook declaration time when the
// target method or function cannot be reflected, or when the declared
// parameter names do not match its arity.
var ErrMissingReflectionTarget = errors.New("otxhook: missing reflection target")

// ErrEncoding is returned by [Encode] when a value cannot be serialized.
// The accompanying attribute value is a placeholder and is still usable.
var ErrEncoding = errors.New("otxhook: value encoding failed")
