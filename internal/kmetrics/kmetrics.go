// Package kmetrics instruments the kernel's syscall dispatch path with
// OpenTelemetry metrics, exported over Prometheus's pull model: syscall
// counts and latencies by name, and live occupancy of the process and
// open-file tables.
package kmetrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys attached to syscall metrics.
const (
	SyscallKey = "syscall"
	ErrnoKey   = "errno"
)

var (
	syscallMeter = "kernel.syscalls"
	tableMeter   = "kernel.tables"

	syscallNameAttributeSet sync.Map
	errnoAttributeSet       sync.Map
)

func loadOrStoreAttributeOption[K comparable](mp *sync.Map, key K, gen func() attribute.Set) metric.MeasurementOption {
	v, ok := mp.Load(key)
	if ok {
		return v.(metric.MeasurementOption)
	}
	v, _ = mp.LoadOrStore(key, metric.WithAttributeSet(gen()))
	return v.(metric.MeasurementOption)
}

func syscallAttrs(name string) metric.MeasurementOption {
	return loadOrStoreAttributeOption(&syscallNameAttributeSet, name, func() attribute.Set {
		return attribute.NewSet(attribute.String(SyscallKey, name))
	})
}

func errnoAttrs(name, errno string) metric.MeasurementOption {
	return loadOrStoreAttributeOption(&errnoAttributeSet, name+"|"+errno, func() attribute.Set {
		return attribute.NewSet(attribute.String(SyscallKey, name), attribute.String(ErrnoKey, errno))
	})
}

// Handle is the interface the syscall dispatchers record against. It is
// implemented by *otelHandle, with NewNoop as a zero-cost stand-in for
// tests and the interactive shell when no metrics sink is configured.
type Handle interface {
	SyscallCount(ctx context.Context, name string)
	SyscallLatency(ctx context.Context, name string, latency time.Duration)
	SyscallErrorCount(ctx context.Context, name, errno string)
	OpenFileTableInUse(ctx context.Context, n int64)
	ProcessTableInUse(ctx context.Context, n int64)
}

type otelHandle struct {
	syscallCount      metric.Int64Counter
	syscallLatency    metric.Float64Histogram
	syscallErrorCount metric.Int64Counter

	openFileTableInUse metric.Int64Gauge
	processTableInUse  metric.Int64Gauge
}

var defaultLatencyDistribution = metric.WithExplicitBucketBoundaries(
	1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000,
)

// NewOTel builds a Handle backed by the given MeterProvider. Setup (in
// setup.go) does the Prometheus exporter and MeterProvider wiring and
// calls NewOTel; cmd only calls Setup.
func NewOTel(meterProvider metric.MeterProvider) (Handle, error) {
	meter := meterProvider.Meter(syscallMeter)
	tmeter := meterProvider.Meter(tableMeter)

	syscallCount, err1 := meter.Int64Counter("syscalls/count",
		metric.WithDescription("The cumulative number of syscalls dispatched by the kernel."))
	syscallLatency, err2 := meter.Float64Histogram("syscalls/latency",
		metric.WithDescription("The distribution of syscall dispatch latencies."),
		metric.WithUnit("us"),
		defaultLatencyDistribution)
	syscallErrorCount, err3 := meter.Int64Counter("syscalls/error_count",
		metric.WithDescription("The cumulative number of syscalls that returned a non-zero errno."))

	openFileTableInUse, err4 := tmeter.Int64Gauge("tables/open_file_in_use",
		metric.WithDescription("The number of slots currently occupied in the system-wide open file table."))
	processTableInUse, err5 := tmeter.Int64Gauge("tables/process_in_use",
		metric.WithDescription("The number of slots currently occupied in the process table."))

	if err := errors.Join(err1, err2, err3, err4, err5); err != nil {
		return nil, err
	}

	return &otelHandle{
		syscallCount:       syscallCount,
		syscallLatency:     syscallLatency,
		syscallErrorCount:  syscallErrorCount,
		openFileTableInUse: openFileTableInUse,
		processTableInUse:  processTableInUse,
	}, nil
}

func (o *otelHandle) SyscallCount(ctx context.Context, name string) {
	o.syscallCount.Add(ctx, 1, syscallAttrs(name))
}

func (o *otelHandle) SyscallLatency(ctx context.Context, name string, latency time.Duration) {
	o.syscallLatency.Record(ctx, float64(latency.Microseconds()), syscallAttrs(name))
}

func (o *otelHandle) SyscallErrorCount(ctx context.Context, name, errno string) {
	o.syscallErrorCount.Add(ctx, 1, errnoAttrs(name, errno))
}

func (o *otelHandle) OpenFileTableInUse(ctx context.Context, n int64) {
	o.openFileTableInUse.Record(ctx, n)
}

func (o *otelHandle) ProcessTableInUse(ctx context.Context, n int64) {
	o.processTableInUse.Record(ctx, n)
}
