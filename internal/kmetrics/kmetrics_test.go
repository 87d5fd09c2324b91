package kmetrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setup(t *testing.T) (Handle, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	h, err := NewOTel(provider)
	require.NoError(t, err)
	return h, reader
}

func findMetric(rm *metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestSyscallCountIncrements(t *testing.T) {
	ctx := context.Background()
	h, reader := setup(t)

	h.SyscallCount(ctx, "open")
	h.SyscallCount(ctx, "open")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	m, ok := findMetric(&rm, "syscalls/count")
	require.True(t, ok)
	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func TestSyscallErrorCountTagsErrno(t *testing.T) {
	ctx := context.Background()
	h, reader := setup(t)

	h.SyscallErrorCount(ctx, "open", "ENOENT")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	m, ok := findMetric(&rm, "syscalls/error_count")
	require.True(t, ok)
	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestTableGaugesRecordLatestValue(t *testing.T) {
	ctx := context.Background()
	h, reader := setup(t)

	h.OpenFileTableInUse(ctx, 3)
	h.OpenFileTableInUse(ctx, 5)
	h.ProcessTableInUse(ctx, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	m, ok := findMetric(&rm, "tables/open_file_in_use")
	require.True(t, ok)
	gauge := m.Data.(metricdata.Gauge[int64])
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(5), gauge.DataPoints[0].Value)
}

func TestNoopHandleDoesNothing(t *testing.T) {
	h := NewNoop()
	ctx := context.Background()
	assert.NotPanics(t, func() {
		h.SyscallCount(ctx, "open")
		h.SyscallLatency(ctx, "open", time.Millisecond)
		h.SyscallErrorCount(ctx, "open", "EBADF")
		h.OpenFileTableInUse(ctx, 0)
		h.ProcessTableInUse(ctx, 0)
	})
}
