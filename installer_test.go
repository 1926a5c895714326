package otxhook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hookKey string

func recordingHook(log *[]string, name string) (PreHandler, PostHandler) {
	pre := func(ctx context.Context, inv *Invocation) context.Context {
		*log = append(*log, "pre "+name+" "+inv.Function)
		return context.WithValue(ctx, hookKey(name), name)
	}
	post := func(ctx context.Context, _ *Invocation, result any, err error) {
		entry := "post " + name
		if ctx.Value(hookKey(name)) != name {
			entry += " (wrong context)"
		}
		if err != nil {
			entry += " err=" + err.Error()
		}
		if result != nil {
			entry += " result=" + result.(string)
		}
		*log = append(*log, entry)
	}

	return pre, post
}

func TestTable_CallOrder(t *testing.T) {
	var log []string
	table := NewTable()

	pre1, post1 := recordingHook(&log, "first")
	pre2, post2 := recordingHook(&log, "second")
	require.NoError(t, table.Install("Svc::run", pre1, post1))
	require.NoError(t, table.Install("Svc::run", pre2, post2))

	res, err := table.Call(context.Background(), "Svc::run", nil, func(ctx context.Context) (any, error) {
		assert.Equal(t, "first", ctx.Value(hookKey("first")))
		assert.Equal(t, "second", ctx.Value(hookKey("second")))
		log = append(log, "call")
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", res)

	assert.Equal(t, []string{
		"pre first run",
		"pre second run",
		"call",
		"post second result=done",
		"post first result=done",
	}, log)
}

func TestTable_CallPanic(t *testing.T) {
	var log []string
	table := NewTable()
	pre, post := recordingHook(&log, "h")
	require.NoError(t, table.Install("Svc::run", pre, post))

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = table.Call(context.Background(), "Svc::run", nil, func(context.Context) (any, error) { panic("boom") })
	})
	assert.Equal(t, []string{"pre h run", "post h err=panic: boom"}, log)
}

func TestTable_PartialHandlers(t *testing.T) {
	var calls []string
	table := NewTable()
	require.NoError(t, table.Install("op", nil, func(context.Context, *Invocation, any, error) { calls = append(calls, "post") }))
	require.NoError(t, table.Install("op", func(ctx context.Context, _ *Invocation) context.Context {
		calls = append(calls, "pre")
		return ctx
	}, nil))

	_, err := table.Call(context.Background(), "op", nil, func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"pre", "post"}, calls)
}

func TestTable_Registry(t *testing.T) {
	table := NewTable()
	noopPre := func(ctx context.Context, _ *Invocation) context.Context { return ctx }

	require.ErrorIs(t, table.Install("", noopPre, nil), ErrInvalidArgument)
	require.ErrorIs(t, table.Install("op", nil, nil), ErrInvalidArgument)

	require.NoError(t, table.Install("b::x", noopPre, nil))
	require.NoError(t, table.Install("a::y", noopPre, nil))
	assert.True(t, table.Installed("a::y"))
	assert.False(t, table.Installed("c::z"))
	assert.Equal(t, []string{"a::y", "b::x"}, table.Operations())

	table.Remove("a::y")
	assert.False(t, table.Installed("a::y"))
	assert.Equal(t, []string{"b::x"}, table.Operations())
}

func TestTable_Unhooked(t *testing.T) {
	table := NewTable()
	want := errors.New("plain")

	res, err := table.Call(context.Background(), "none", nil, func(context.Context) (any, error) { return 1, want })
	assert.Equal(t, 1, res)
	assert.ErrorIs(t, err, want)
}

func TestInvoke(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Install("op", func(ctx context.Context, _ *Invocation) context.Context { return ctx }, nil))

	n, err := Invoke(context.Background(), table, "op", nil, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	p, err := Invoke(context.Background(), table, "op", nil, func(context.Context) (*payload, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestInstallerFunc(t *testing.T) {
	var got string
	in := InstallerFunc(func(op string, _ PreHandler, _ PostHandler) error {
		got = op
		return nil
	})

	inst, _ := newTestInstrumentation(t)
	require.NoError(t, inst.Hook(in, getSpec()))
	assert.Equal(t, "ClassName::get", got)
}
