// Package telemetry sets up OpenTelemetry metrics for the storage engine and
// exposes them through a Prometheus endpoint.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.uber.org/zap"
)

// Config holds all the configuration for the telemetry system.
type Config struct {
	// Enabled toggles the telemetry system on or off. When off, every
	// instrument is a no-op and nothing listens on the network.
	Enabled bool `yaml:"enabled"`
	// ServiceName is the name attached to exported metrics.
	ServiceName string `yaml:"service_name"`
	// MetricsAddr is the listen address for the /metrics endpoint, e.g.
	// ":9464". Empty disables the endpoint while keeping instruments live.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Telemetry owns the meter provider and, when enabled, the Prometheus
// exposition endpoint.
type Telemetry struct {
	meterProvider metric.MeterProvider
	sdkProvider   *sdkmetric.MeterProvider
	server        *http.Server
	serviceName   string
}

// New initializes the metrics pipeline: a dedicated Prometheus registry, an
// OpenTelemetry Prometheus exporter reading from the SDK meter provider, and
// an HTTP server for exposition. Disabled configs get no-op providers.
func New(config Config, log *zap.Logger) (*Telemetry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if config.ServiceName == "" {
		config.ServiceName = "stratadb"
	}

	if !config.Enabled {
		return &Telemetry{
			meterProvider: noop.NewMeterProvider(),
			serviceName:   config.ServiceName,
		}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	tel := &Telemetry{
		meterProvider: provider,
		sdkProvider:   provider,
		serviceName:   config.ServiceName,
	}

	if config.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		tel.server = &http.Server{Addr: config.MetricsAddr, Handler: mux}
		go func() {
			if err := tel.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	return tel, nil
}

// Meter returns the meter components register their instruments on. Safe on a
// nil receiver: callers that were never given telemetry get no-op instruments.
func (t *Telemetry) Meter() metric.Meter {
	if t == nil {
		return noop.NewMeterProvider().Meter("stratadb")
	}
	return t.meterProvider.Meter(t.serviceName)
}

// Shutdown stops the exposition endpoint and flushes the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var firstErr error
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("failed to shutdown metrics endpoint: %w", err)
		}
	}
	if t.sdkProvider != nil {
		if err := t.sdkProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
	}
	return firstErr
}
