package otxhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestIsEnabled(t *testing.T) {
	assert.False(t, (*TelemetryConfig)(nil).IsEnabled())
	assert.False(t, (&TelemetryConfig{}).IsEnabled())
	assert.True(t, (&TelemetryConfig{Enabled: boolPtr(true)}).IsEnabled())

	assert.True(t, (*TracesConfig)(nil).IsEnabled())
	assert.False(t, (*LogsConfig)(nil).IsEnabled())
	assert.False(t, (*MetricsConfig)(nil).IsEnabled())
	assert.False(t, (*HookConfig)(nil).IsDebug())
	assert.False(t, (*HookConfig)(nil).MetricsEnabled())
}

func TestPropConfig(t *testing.T) {
	var nilCfg *PropConfig
	assert.True(t, nilCfg.HasTraceContext())
	assert.True(t, nilCfg.HasBaggage())

	cfg := &PropConfig{Propagators: " tracecontext , b3 "}
	assert.True(t, cfg.HasTraceContext())
	assert.False(t, cfg.HasBaggage())
}

func TestNewFromConfig(t *testing.T) {
	cfg := &TelemetryConfig{
		ServiceName: "svc",
		Version:     "1.2.3",
		Hooks: &HookConfig{
			AttributePrefix: "cache",
			SpanKind:        "server",
			Debug:           boolPtr(true),
		},
	}

	inst, err := NewFromConfig(cfg, WithTracerProvider(noop.NewTracerProvider()))
	require.NoError(t, err)
	assert.Equal(t, "svc", inst.Name())
	assert.Equal(t, "cache", inst.Prefix())
	assert.Equal(t, SpanKindServer, inst.SpanKind())

	inst, err = NewFromConfig(cfg, WithPrefix("db"))
	require.NoError(t, err)
	assert.Equal(t, "db", inst.Prefix())
}

func TestNewFromConfig_Errors(t *testing.T) {
	_, err := NewFromConfig(&TelemetryConfig{})
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewFromConfig(&TelemetryConfig{ServiceName: "svc", Hooks: &HookConfig{SpanKind: "bogus"}})
	require.ErrorIs(t, err, ErrConfiguration)
}
