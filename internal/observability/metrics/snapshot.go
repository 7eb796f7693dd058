// Package metrics provides Prometheus collectors for the snapshot engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Histogram bucket parameters.
const (
	bucketStart10ms  = 0.01
	bucketStart100ms = 0.1
	bucketFactor2    = 2.0
	bucketCount10    = 10
)

// SnapshotMetrics contains Prometheus metrics for measurement passes and
// individual target measurements.
type SnapshotMetrics struct {
	registry *prometheus.Registry

	// Pass metrics
	passesTotal         *prometheus.CounterVec
	passDurationSeconds prometheus.Histogram
	lastPassTimestamp   prometheus.Gauge

	// Per-target measurement metrics
	measureDurationSeconds prometheus.Histogram
	measureFailuresTotal   *prometheus.CounterVec

	// Snapshot content metrics
	directoryEntries prometheus.Gauge
	jobEntries       prometheus.Gauge

	// Mount-level context for the monitored root
	homeUsedBytes  prometheus.Gauge
	homeTotalBytes prometheus.Gauge
}

// NewSnapshotMetrics creates and registers new snapshot metrics
func NewSnapshotMetrics(registry *prometheus.Registry) (*SnapshotMetrics, error) {
	m := &SnapshotMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SnapshotMetrics) initMetrics() {
	m.passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dusnap_passes_total",
			Help: "Total number of measurement passes by status",
		},
		[]string{"status"}, // status: success, error
	)

	m.passDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dusnap_pass_duration_seconds",
		Help:    "Time taken for a full measurement pass",
		Buckets: prometheus.ExponentialBuckets(bucketStart100ms, bucketFactor2, bucketCount10),
	})

	m.lastPassTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dusnap_last_pass_timestamp_seconds",
		Help: "Unix timestamp of the last committed measurement pass",
	})

	m.measureDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dusnap_measure_duration_seconds",
		Help:    "Time taken to measure a single target",
		Buckets: prometheus.ExponentialBuckets(bucketStart10ms, bucketFactor2, bucketCount10),
	})

	m.measureFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dusnap_measure_failures_total",
			Help: "Total number of failed target measurements by reason",
		},
		[]string{"reason"}, // reason: target_missing, timeout, exit_status, parse
	)

	m.directoryEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dusnap_directory_entries",
		Help: "Number of directory entries in the published snapshot",
	})

	m.jobEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dusnap_job_entries",
		Help: "Number of job entries in the published snapshot",
	})

	m.homeUsedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dusnap_home_filesystem_used_bytes",
		Help: "Used bytes on the filesystem holding the monitored home root",
	})

	m.homeTotalBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dusnap_home_filesystem_total_bytes",
		Help: "Total bytes on the filesystem holding the monitored home root",
	})
}

// Describe implements the Collector interface
func (m *SnapshotMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.passesTotal.Describe(ch)
	m.passDurationSeconds.Describe(ch)
	m.lastPassTimestamp.Describe(ch)
	m.measureDurationSeconds.Describe(ch)
	m.measureFailuresTotal.Describe(ch)
	m.directoryEntries.Describe(ch)
	m.jobEntries.Describe(ch)
	m.homeUsedBytes.Describe(ch)
	m.homeTotalBytes.Describe(ch)
}

// Collect implements the Collector interface
func (m *SnapshotMetrics) Collect(ch chan<- prometheus.Metric) {
	m.passesTotal.Collect(ch)
	m.passDurationSeconds.Collect(ch)
	m.lastPassTimestamp.Collect(ch)
	m.measureDurationSeconds.Collect(ch)
	m.measureFailuresTotal.Collect(ch)
	m.directoryEntries.Collect(ch)
	m.jobEntries.Collect(ch)
	m.homeUsedBytes.Collect(ch)
	m.homeTotalBytes.Collect(ch)
}

// RecordPass records the outcome and duration of a full measurement pass
func (m *SnapshotMetrics) RecordPass(status string, durationSeconds float64) {
	m.passesTotal.WithLabelValues(status).Inc()
	m.passDurationSeconds.Observe(durationSeconds)
}

// SetLastPassTimestamp records when the last pass committed
func (m *SnapshotMetrics) SetLastPassTimestamp(t time.Time) {
	m.lastPassTimestamp.Set(float64(t.Unix()))
}

// RecordMeasureDuration records the time taken to measure one target
func (m *SnapshotMetrics) RecordMeasureDuration(durationSeconds float64) {
	m.measureDurationSeconds.Observe(durationSeconds)
}

// RecordMeasureFailure records a failed target measurement
func (m *SnapshotMetrics) RecordMeasureFailure(reason string) {
	m.measureFailuresTotal.WithLabelValues(reason).Inc()
}

// UpdateCollections records the size of the published collections
func (m *SnapshotMetrics) UpdateCollections(directories, jobs int) {
	m.directoryEntries.Set(float64(directories))
	m.jobEntries.Set(float64(jobs))
}

// UpdateHomeFilesystem records mount-level usage of the home root
func (m *SnapshotMetrics) UpdateHomeFilesystem(usedBytes, totalBytes uint64) {
	m.homeUsedBytes.Set(float64(usedBytes))
	m.homeTotalBytes.Set(float64(totalBytes))
}
