package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSink(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "imbue-sim"})
	assert.ErrorContains(t, err, "no log writer or endpoint")
}

func TestNew_FileLogs(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, ServiceName: "imbue-sim", BatchTimeout: time.Second, LogWriter: &buf})
	require.NoError(t, err)

	assert.True(t, p.Enabled())
	assert.NotNil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_Metrics(t *testing.T) {
	var logs, metrics bytes.Buffer
	p, err := New(Config{
		Enabled:        true,
		ServiceName:    "imbue-sim",
		BatchTimeout:   time.Second,
		LogWriter:      &logs,
		MetricWriter:   &metrics,
		MetricInterval: time.Hour,
	})
	require.NoError(t, err)

	c, err := p.Meter("test").Int64Counter("walks")
	require.NoError(t, err)
	c.Add(context.Background(), 2)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, metrics.String(), "walks")
	require.NoError(t, p.Shutdown(context.Background()))
}
