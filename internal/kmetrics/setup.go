package kmetrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ShutdownFunc stops background exporting and releases the listener
// started by Setup.
type ShutdownFunc func(ctx context.Context) error

// Setup wires an OTel MeterProvider to a Prometheus exporter and starts
// an HTTP server at addr serving /metrics, returning the Handle
// dispatchers record against and a ShutdownFunc for graceful exit.
func Setup(addr string) (Handle, ShutdownFunc, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	handle, err := NewOTel(provider)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		_ = server.ListenAndServe()
	}()

	shutdown := func(ctx context.Context) error {
		if err := server.Shutdown(ctx); err != nil {
			return err
		}
		return provider.Shutdown(ctx)
	}
	return handle, shutdown, nil
}
