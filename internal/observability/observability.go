// Package observability provides metrics collection for the dusnap service.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/dusnap/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Snapshot *metrics.SnapshotMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	snapshotMetrics, err := metrics.NewSnapshotMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Snapshot: snapshotMetrics,
	}, nil
}

// Handler returns an http.Handler serving the metrics registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
