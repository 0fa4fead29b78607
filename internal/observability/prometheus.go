package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ErrNoMetricsFile is returned when a textfile export has no destination.
var ErrNoMetricsFile = errors.New("metrics file path is empty")

// TextfileExporter collects OTel instruments into a private Prometheus
// registry and writes them in the node_exporter textfile format. Each
// exporter owns its registry so repeated construction never conflicts.
type TextfileExporter struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
}

// NewTextfileExporter creates an exporter with its own meter provider.
func NewTextfileExporter() (*TextfileExporter, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &TextfileExporter{
		registry: registry,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
	}, nil
}

// Meter returns a meter whose instruments end up in the textfile.
func (te *TextfileExporter) Meter() metric.Meter {
	return te.provider.Meter(meterName)
}

// WriteFile gathers the registry and atomically writes it to path.
func (te *TextfileExporter) WriteFile(path string) error {
	if path == "" {
		return ErrNoMetricsFile
	}

	err := prometheus.WriteToTextfile(path, te.registry)
	if err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}

	return nil
}

// Shutdown releases the meter provider.
func (te *TextfileExporter) Shutdown(ctx context.Context) error {
	return te.provider.Shutdown(ctx)
}
