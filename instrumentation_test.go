package otxhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNew(t *testing.T) {
	inst, err := New(WithName("svc"))
	require.NoError(t, err)
	assert.Equal(t, "svc", inst.Name())
	assert.Equal(t, SpanKindInternal, inst.SpanKind())
	assert.Empty(t, inst.Prefix())
	assert.NotNil(t, inst.Tracer())

	inst, err = New(WithTracerProvider(noop.NewTracerProvider()))
	require.NoError(t, err)
	assert.Equal(t, DefaultInstrumentationName, inst.Name())
}

func TestNew_Errors(t *testing.T) {
	_, err := New()
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = New(WithName("svc"), WithSpanKind("SIDEWAYS"))
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = New(WithName("svc"), WithSpanKind(""))
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestAttributeName(t *testing.T) {
	cases := []struct {
		prefix string
		name   string
		want   string
	}{
		{prefix: "cache", name: "cid", want: "cache.cid"},
		{prefix: "cache", name: "operation", want: "cache.operation"},
		{prefix: "", name: "cid", want: "cid"},
		{prefix: "a.b", name: "c", want: "a.b.c"},
	}

	for _, tt := range cases {
		inst, err := New(WithName("svc"), WithPrefix(tt.prefix))
		require.NoError(t, err)

		got, err := inst.AttributeName(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	inst, err := New(WithName("svc"), WithPrefix("cache"))
	require.NoError(t, err)
	_, err = inst.AttributeName("")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDefaultInstance(t *testing.T) {
	SetDefault(nil)
	t.Cleanup(func() { SetDefault(nil) })

	_, err := Default()
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = AttributeName("cid")
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = MakeHook(HookSpec{Signature: Signature{Function: "get"}})
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, Hook(NewTable(), HookSpec{Signature: Signature{Function: "get"}}), ErrNotInitialized)

	_, err = Init()
	require.ErrorIs(t, err, ErrConfiguration)
	_, err = Default()
	require.ErrorIs(t, err, ErrNotInitialized)

	first, err := Init(WithName("svc"), WithPrefix("cache"))
	require.NoError(t, err)
	got, err := Default()
	require.NoError(t, err)
	assert.Same(t, first, got)

	name, err := AttributeName("cid")
	require.NoError(t, err)
	assert.Equal(t, "cache.cid", name)

	// re-initialization replaces the instance as a whole
	second, err := Init(WithName("other"), WithPrefix("db"))
	require.NoError(t, err)
	got, err = Default()
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Equal(t, "cache", first.Prefix())

	name, err = AttributeName("cid")
	require.NoError(t, err)
	assert.Equal(t, "db.cid", name)
}

func TestIndependentInstances(t *testing.T) {
	a, err := New(WithName("a"), WithPrefix("cache"))
	require.NoError(t, err)
	b, err := New(WithName("b"), WithPrefix("db"), WithSpanKind(SpanKindClient))
	require.NoError(t, err)

	an, _ := a.AttributeName("key")
	bn, _ := b.AttributeName("key")
	assert.Equal(t, "cache.key", an)
	assert.Equal(t, "db.key", bn)
	assert.Equal(t, SpanKindInternal, a.SpanKind())
	assert.Equal(t, SpanKindClient, b.SpanKind())
}
