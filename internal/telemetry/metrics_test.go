package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestGetMetrics(t *testing.T) {
	m := GetMetrics()
	require.NotNil(t, m)
	require.Same(t, m, GetMetrics())

	require.NotPanics(t, func() {
		m.RecordResolution(context.Background(), "ok", 1.5)
		m.RecordRoutingDecision(context.Background(), "main_landing", true)
		m.RecordSignIn(context.Background(), "invalid")
	})
}

func TestConfigSampler(t *testing.T) {
	require.Equal(t, sdktrace.AlwaysSample().Description(), Config{}.sampler().Description())
	require.Equal(t, sdktrace.AlwaysSample().Description(), Config{SampleRatio: 1}.sampler().Description())
	require.Contains(t, Config{SampleRatio: 0.25}.sampler().Description(), "TraceIDRatioBased{0.25}")
}

func TestConfigAttributes(t *testing.T) {
	attrs := Config{ServiceName: "steeple-server", Version: "dev"}.attributes()
	require.Len(t, attrs, 2)

	attrs = Config{ServiceName: "steeple-server", Version: "dev", Apex: "steeple.app"}.attributes()
	require.Len(t, attrs, 3)
	require.Equal(t, "steeple.apex", string(attrs[2].Key))
	require.Equal(t, "steeple.app", attrs[2].Value.AsString())
}

func TestCombineShutdown(t *testing.T) {
	var calls int
	ok := func(context.Context) error { calls++; return nil }
	failed := func(context.Context) error { calls++; return errors.New("exporter closed") }

	require.NoError(t, combine(nil)(context.Background()))
	require.NoError(t, combine([]ShutdownFunc{ok, ok})(context.Background()))

	err := combine([]ShutdownFunc{failed, ok})(context.Background())
	require.ErrorContains(t, err, "exporter closed")
	require.Equal(t, 4, calls)
	require.Equal(t, defaultMetricInterval, Config{}.metricInterval())
	require.Equal(t, time.Minute, Config{MetricInterval: time.Minute}.metricInterval())
}
