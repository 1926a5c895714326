package otxhook

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Scope is the active span of one hooked invocation together with the context
// that was active before it began. A pre handler attaches a Scope and the
// matching post handler detaches it.
type Scope struct {
	operation string
	span      trace.Span
	ctx       context.Context
	parent    context.Context
	started   time.Time
	closing   atomic.Bool
	detached  atomic.Bool
}

// Operation returns the operation identity the scope was opened for.
func (s *Scope) Operation() string { return s.operation }

// Span returns the span opened by the pre handler.
func (s *Scope) Span() trace.Span { return s.span }

// Context returns the context in which the span is active.
func (s *Scope) Context() context.Context { return s.ctx }

// Parent returns the restore point: the context active before the span began.
func (s *Scope) Parent() context.Context { return s.parent }

// Detached reports whether the scope has been closed.
func (s *Scope) Detached() bool { return s.detached.Load() }

// claim reserves the scope for the one post handler allowed to close it.
func (s *Scope) claim() bool { return s.closing.CompareAndSwap(false, true) }

// ContextPropagator carries the active scope across the pre/post boundary of
// a hooked call. Attach and Detach must be called in matched pairs; the
// implementation provides the nesting.
type ContextPropagator interface {
	// Current returns the context new spans are parented to.
	Current(ctx context.Context) context.Context
	// Attach activates span on top of parent and returns the context the
	// hooked call should run with.
	Attach(parent context.Context, span trace.Span, operation string) (context.Context, *Scope)
	// Scope returns the open scope ctx was produced with, if any.
	Scope(ctx context.Context) (*Scope, bool)
	// Detach closes s and returns its restore point. Detaching twice is a no-op.
	Detach(s *Scope) context.Context
}

type scopeKey struct{}

// ContextScopes keeps scopes on the context.Context chain. Every invocation
// owns its own chain, so concurrent and nested calls are isolated without
// any shared state. It is the default propagator.
type ContextScopes struct{}

var _ ContextPropagator = ContextScopes{}

// Current returns ctx, or context.Background if ctx is nil.
func (ContextScopes) Current(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}

	return ctx
}

// Attach stores a new scope on a child of parent that carries span.
func (ContextScopes) Attach(parent context.Context, span trace.Span, operation string) (context.Context, *Scope) {
	s := newScope(parent, span, operation)
	s.ctx = context.WithValue(trace.ContextWithSpan(s.parent, span), scopeKey{}, s)

	return s.ctx, s
}

// Scope returns the innermost scope on ctx. A closed scope yields nothing:
// its restore point belongs to another call.
func (ContextScopes) Scope(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}

	s, _ := ctx.Value(scopeKey{}).(*Scope)
	if s == nil || s.Detached() {
		return nil, false
	}

	return s, true
}

// Detach marks s closed and returns its restore point.
func (ContextScopes) Detach(s *Scope) context.Context {
	s.detached.Store(true)
	return s.parent
}

// StackScopes is an in-memory LIFO of scopes shared by every caller. It
// suits substrates that cannot hand a context from the pre to the post
// handler, provided only one goroutine drives it at a time, and gives tests
// a deterministic view of what is active.
type StackScopes struct {
	mu    sync.Mutex
	stack []*Scope
}

var _ ContextPropagator = (*StackScopes)(nil)

// NewStackScopes returns an empty scope stack.
func NewStackScopes() *StackScopes {
	return &StackScopes{}
}

// Current returns the context of the top scope, or ctx when the stack is empty.
func (st *StackScopes) Current(ctx context.Context) context.Context {
	st.mu.Lock()
	defer st.mu.Unlock()

	if n := len(st.stack); n > 0 {
		return st.stack[n-1].ctx
	}
	if ctx == nil {
		return context.Background()
	}

	return ctx
}

// Attach pushes a new scope.
func (st *StackScopes) Attach(parent context.Context, span trace.Span, operation string) (context.Context, *Scope) {
	s := newScope(parent, span, operation)
	s.ctx = trace.ContextWithSpan(s.parent, span)

	st.mu.Lock()
	st.stack = append(st.stack, s)
	st.mu.Unlock()

	return s.ctx, s
}

// Scope returns the top of the stack, ignoring ctx.
func (st *StackScopes) Scope(_ context.Context) (*Scope, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if n := len(st.stack); n > 0 {
		return st.stack[n-1], true
	}

	return nil, false
}

// Detach marks s closed and pops every closed scope off the top.
func (st *StackScopes) Detach(s *Scope) context.Context {
	s.detached.Store(true)

	st.mu.Lock()
	for n := len(st.stack); n > 0 && st.stack[n-1].Detached(); n = len(st.stack) {
		st.stack[n-1] = nil
		st.stack = st.stack[:n-1]
	}
	st.mu.Unlock()

	return s.parent
}

// Depth returns the number of open scopes.
func (st *StackScopes) Depth() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.stack)
}

func newScope(parent context.Context, span trace.Span, operation string) *Scope {
	if parent == nil {
		parent = context.Background()
	}

	return &Scope{
		operation: operation,
		span:      span,
		parent:    parent,
		started:   time.Now(),
	}
}
