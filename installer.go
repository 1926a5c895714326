package otxhook

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Installer registers a pre/post handler pair with an interception
// substrate, which must then invoke pre before and post after every call of
// the named operation.
type Installer interface {
	Install(operation string, pre PreHandler, post PostHandler) error
}

// InstallerFunc adapts a function to [Installer].
type InstallerFunc func(operation string, pre PreHandler, post PostHandler) error

// Install calls f.
func (f InstallerFunc) Install(operation string, pre PreHandler, post PostHandler) error {
	return f(operation, pre, post)
}

type hookPair struct {
	pre  PreHandler
	post PostHandler
}

// Table is an in-process interception substrate. Hooks are installed per
// operation identity; wrappers such as the gRPC, HTTP and NATS adapters, or
// plain code through [Table.Call] and [Invoke], run calls through it.
type Table struct {
	mu    sync.RWMutex
	hooks map[string][]hookPair
}

var _ Installer = (*Table)(nil)

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{hooks: make(map[string][]hookPair)}
}

// Install adds a hook for operation. Several hooks on one operation nest in
// installation order: the first installed is the outermost.
func (t *Table) Install(operation string, pre PreHandler, post PostHandler) error {
	if operation == "" {
		return fmt.Errorf("%w: operation must not be empty", ErrInvalidArgument)
	}
	if pre == nil && post == nil {
		return fmt.Errorf("%w: hook for %s has no handlers", ErrInvalidArgument, operation)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.hooks[operation] = append(t.hooks[operation], hookPair{pre: pre, post: post})

	return nil
}

// Installed reports whether operation has at least one hook.
func (t *Table) Installed(operation string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.hooks[operation]) > 0
}

// Operations returns the hooked operation identities, sorted.
func (t *Table) Operations() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ops := make([]string, 0, len(t.hooks))
	for op := range t.hooks {
		ops = append(ops, op)
	}
	slices.Sort(ops)

	return ops
}

// Remove drops every hook of operation.
func (t *Table) Remove(operation string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.hooks, operation)
}

// Call runs fn as a call of operation, surrounded by the operation's hooks.
// fn receives the context produced by the pre handlers. Its result and error
// are returned unchanged. If fn panics, the post handlers observe the panic
// as an error and the panic is then resumed.
func (t *Table) Call(
	ctx context.Context,
	operation string,
	inv *Invocation,
	fn func(context.Context) (any, error),
) (any, error) {
	t.mu.RLock()
	hooks := t.hooks[operation]
	t.mu.RUnlock()

	if len(hooks) == 0 {
		return fn(ctx)
	}
	if inv == nil {
		class, function := SplitOperation(operation)
		inv = &Invocation{Class: class, Function: function}
	}

	ctxs := make([]context.Context, len(hooks))
	cur := ctx
	for n, h := range hooks {
		if h.pre != nil {
			cur = h.pre(cur, inv)
		}
		ctxs[n] = cur
	}

	var (
		result    any
		err       error
		recovered any
		panicked  = true
	)
	func() {
		defer func() {
			if panicked {
				recovered = recover()
				err = fmt.Errorf("panic: %v", recovered)
			}
		}()
		result, err = fn(cur)
		panicked = false
	}()

	for n := len(hooks) - 1; n >= 0; n-- {
		if hooks[n].post != nil {
			hooks[n].post(ctxs[n], inv, result, err)
		}
	}

	if panicked {
		panic(recovered)
	}

	return result, err
}

// Invoke is [Table.Call] for a typed result.
func Invoke[R any](
	ctx context.Context,
	t *Table,
	operation string,
	inv *Invocation,
	fn func(context.Context) (R, error),
) (R, error) {
	res, err := t.Call(ctx, operation, inv, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})

	r, _ := res.(R)

	return r, err
}
