// Package observability provides Prometheus metrics for the PetWatch pipeline.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"net/http"
)

// Metrics holds all metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline
	FramesProcessed    prometheus.Counter
	DetectionsObserved prometheus.Counter
	Confirmations      *prometheus.CounterVec
	CooldownSuppressed *prometheus.CounterVec

	// Snapshot store
	SnapshotsSaved   prometheus.Counter
	SnapshotsEvicted prometheus.Counter
	SnapshotsFailed  prometheus.Counter

	// Delivery
	DeliveriesAttempted *prometheus.CounterVec
	DeliveriesSucceeded *prometheus.CounterVec
	DeliveriesFailed    *prometheus.CounterVec
	DeliveryDuration    *prometheus.HistogramVec
	QueueDepth          prometheus.Gauge
	QueueDropped        prometheus.Counter
}

// NewMetrics creates a Metrics instance with its own registry.
// It returns an error if metric registration fails.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.FramesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "petwatch_frames_processed_total",
		Help: "Total number of frames processed by the monitor",
	})
	m.DetectionsObserved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "petwatch_detections_observed_total",
		Help: "Total number of detection events observed",
	})
	m.Confirmations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petwatch_confirmations_total",
		Help: "Total number of confirmed detections per label",
	}, []string{"label"})
	m.CooldownSuppressed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petwatch_cooldown_suppressed_total",
		Help: "Total number of confirmed detections suppressed by the cooldown gate",
	}, []string{"label"})

	m.SnapshotsSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "petwatch_snapshots_saved_total",
		Help: "Total number of snapshot images saved",
	})
	m.SnapshotsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "petwatch_snapshots_evicted_total",
		Help: "Total number of snapshot images deleted by rotation",
	})
	m.SnapshotsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "petwatch_snapshots_failed_total",
		Help: "Total number of snapshot save failures",
	})

	m.DeliveriesAttempted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petwatch_deliveries_attempted_total",
		Help: "Total number of notification delivery attempts per provider",
	}, []string{"provider"})
	m.DeliveriesSucceeded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petwatch_deliveries_succeeded_total",
		Help: "Total number of successful notification deliveries per provider",
	}, []string{"provider"})
	m.DeliveriesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petwatch_deliveries_failed_total",
		Help: "Total number of failed notification deliveries per provider",
	}, []string{"provider"})
	m.DeliveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "petwatch_delivery_duration_seconds",
		Help:    "Duration of notification delivery attempts per provider",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"provider"})
	m.QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "petwatch_delivery_queue_depth",
		Help: "Current depth of the notification delivery queue",
	})
	m.QueueDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "petwatch_delivery_queue_dropped_total",
		Help: "Total number of notifications dropped because the queue was full",
	})

	collectors := []prometheus.Collector{
		m.FramesProcessed,
		m.DetectionsObserved,
		m.Confirmations,
		m.CooldownSuppressed,
		m.SnapshotsSaved,
		m.SnapshotsEvicted,
		m.SnapshotsFailed,
		m.DeliveriesAttempted,
		m.DeliveriesSucceeded,
		m.DeliveriesFailed,
		m.DeliveryDuration,
		m.QueueDepth,
		m.QueueDropped,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics collector: %w", err)
		}
	}

	return m, nil
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, used by tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
