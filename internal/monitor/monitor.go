// Package monitor runs the frame-processing pipeline: detection events in,
// confirmed notifications out. Per frame it updates the persistence tracker,
// consults the cooldown gate, saves a snapshot and hands confirmed alerts to
// the delivery worker.
package monitor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/petwatch/petwatch-go/internal/conf"
	"github.com/petwatch/petwatch-go/internal/detection"
	"github.com/petwatch/petwatch-go/internal/errors"
	"github.com/petwatch/petwatch-go/internal/logging"
	"github.com/petwatch/petwatch-go/internal/notification"
	"github.com/petwatch/petwatch-go/internal/observability"
	"github.com/petwatch/petwatch-go/internal/snapshot"
	"github.com/petwatch/petwatch-go/internal/tracking"
)

// Monitor owns the per-frame pipeline state. ProcessFrame is called from a
// single goroutine; Stats may be read concurrently.
type Monitor struct {
	settings *conf.Settings
	tracker  *tracking.Tracker
	gate     *tracking.CooldownGate
	store    *snapshot.Store
	worker   *notification.Worker
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu    sync.Mutex
	stats stats
}

type stats struct {
	startTime      time.Time
	frames         uint64
	detections     uint64
	confirmations  map[string]uint64
	suppressed     map[string]uint64
	enqueued       uint64
	snapshotsSaved uint64
}

// Stats is a point-in-time snapshot of monitor counters for the status API.
type Stats struct {
	StartTime      time.Time         `json:"start_time"`
	Uptime         string            `json:"uptime"`
	Frames         uint64            `json:"frames_processed"`
	Detections     uint64            `json:"detections_observed"`
	Confirmations  map[string]uint64 `json:"confirmations"`
	Suppressed     map[string]uint64 `json:"cooldown_suppressed"`
	Enqueued       uint64            `json:"notifications_enqueued"`
	SnapshotsSaved uint64            `json:"snapshots_saved"`
	QueueDropped   uint64            `json:"queue_dropped"`
}

// New creates a monitor. The snapshot store and delivery worker may be nil
// when the corresponding feature is disabled.
func New(settings *conf.Settings, store *snapshot.Store, worker *notification.Worker, metrics *observability.Metrics) *Monitor {
	if store != nil && metrics != nil {
		store.SetEvictionHook(func(count int) {
			metrics.SnapshotsEvicted.Add(float64(count))
		})
	}
	return &Monitor{
		settings: settings,
		tracker:  tracking.NewTracker(settings.Detection.PersistenceFrames),
		gate:     tracking.NewCooldownGate(settings.Notification.Cooldown()),
		store:    store,
		worker:   worker,
		metrics:  metrics,
		logger:   logging.ForService("monitor"),
		stats: stats{
			startTime:     time.Now(),
			confirmations: make(map[string]uint64),
			suppressed:    make(map[string]uint64),
		},
	}
}

// Run consumes frames from the source until the context is canceled or the
// source is exhausted. Transient source errors are logged and skipped.
func (m *Monitor) Run(ctx context.Context, source detection.Source) error {
	m.logger.Info("monitor started",
		"persistence_frames", m.settings.Detection.PersistenceFrames,
		"cooldown", m.settings.Notification.Cooldown(),
		"confidence", m.settings.Detection.Confidence)

	for {
		frame, err := source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			m.logger.Info("event source exhausted")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ctx.Err()
		default:
			m.logger.Error("failed to read frame", "error", err)
			continue
		}

		m.ProcessFrame(frame, time.Now())
	}
}

// ProcessFrame runs the pipeline for one frame: observe presence and absence
// for every known label, confirm streaks that reach the persistence
// threshold, gate them through the cooldown, then snapshot and enqueue.
// now must come from time.Now so the cooldown sees monotonic readings.
// It returns the labels for which a notification was enqueued.
func (m *Monitor) ProcessFrame(frame detection.Frame, now time.Time) []string {
	present := detection.PresentLabels(frame.Events, m.settings.Detection.Confidence)
	presentSet := make(map[string]struct{}, len(present))
	for _, label := range present {
		presentSet[label] = struct{}{}
	}

	// Absent labels must be observed too, an absence is what resets a streak.
	for _, label := range m.tracker.Labels() {
		if _, ok := presentSet[label]; !ok {
			m.tracker.Observe(label, false, now)
		}
	}

	var fired []string
	for _, label := range present {
		if !m.tracker.Observe(label, true, now) {
			continue
		}
		m.recordConfirmed(label)

		if !m.gate.TryFire(label, now) {
			m.recordSuppressed(label)
			m.logger.Debug("confirmation suppressed by cooldown",
				"label", label,
				"remaining", m.gate.Remaining(label, now))
			continue
		}

		m.notify(frame, label, now)
		fired = append(fired, label)
	}

	m.recordFrame(uint64(len(frame.Events)))
	return fired
}

// notify saves a snapshot when possible and enqueues the notification. A
// snapshot failure degrades to an image-less alert, never drops it.
func (m *Monitor) notify(frame detection.Frame, label string, now time.Time) {
	imagePath := ""
	if m.store != nil && len(frame.Image) > 0 {
		path, err := m.store.Save(frame.Image, label, now)
		if err != nil {
			if m.metrics != nil {
				m.metrics.SnapshotsFailed.Inc()
			}
			m.logger.Error("snapshot save failed", "label", label, "error", err)
		} else {
			imagePath = path
			if m.metrics != nil {
				m.metrics.SnapshotsSaved.Inc()
			}
			m.mu.Lock()
			m.stats.snapshotsSaved++
			m.mu.Unlock()
		}
	}

	confidence := 0.0
	if best, ok := detection.BestEvent(frame.Events, label); ok {
		confidence = best.Confidence
	}

	n := notification.NewDetection(label, confidence, imagePath, now)
	m.logger.Info("detection confirmed",
		"label", label,
		"confidence", confidence,
		"snapshot", imagePath != "")

	if m.worker != nil && m.worker.Enqueue(n) {
		m.mu.Lock()
		m.stats.enqueued++
		m.mu.Unlock()
	}
}

// Stats returns a snapshot of the monitor counters.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Stats{
		StartTime:      m.stats.startTime,
		Uptime:         time.Since(m.stats.startTime).Round(time.Second).String(),
		Frames:         m.stats.frames,
		Detections:     m.stats.detections,
		Confirmations:  make(map[string]uint64, len(m.stats.confirmations)),
		Suppressed:     make(map[string]uint64, len(m.stats.suppressed)),
		Enqueued:       m.stats.enqueued,
		SnapshotsSaved: m.stats.snapshotsSaved,
	}
	for k, v := range m.stats.confirmations {
		out.Confirmations[k] = v
	}
	for k, v := range m.stats.suppressed {
		out.Suppressed[k] = v
	}
	if m.worker != nil {
		out.QueueDropped = m.worker.Dropped()
	}
	return out
}

func (m *Monitor) recordFrame(events uint64) {
	if m.metrics != nil {
		m.metrics.FramesProcessed.Inc()
		m.metrics.DetectionsObserved.Add(float64(events))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.frames++
	m.stats.detections += events
}

// recordConfirmed counts a threshold crossing, before the cooldown gate, so
// the counter and the metric of the same name agree. Suppressed crossings
// are visible as the difference to the suppressed counter.
func (m *Monitor) recordConfirmed(label string) {
	if m.metrics != nil {
		m.metrics.Confirmations.WithLabelValues(label).Inc()
	}
	m.mu.Lock()
	m.stats.confirmations[label]++
	m.mu.Unlock()
}

func (m *Monitor) recordSuppressed(label string) {
	if m.metrics != nil {
		m.metrics.CooldownSuppressed.WithLabelValues(label).Inc()
	}
	m.mu.Lock()
	m.stats.suppressed[label]++
	m.mu.Unlock()
}
