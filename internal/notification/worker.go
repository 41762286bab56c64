package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/petwatch/petwatch-go/internal/logging"
	"github.com/petwatch/petwatch-go/internal/observability"
)

const defaultHistorySize = 100

// ReportSink receives finished delivery reports, for example to persist them.
type ReportSink func(n *Notification, report *DeliveryReport)

// Worker decouples delivery from the frame loop. Notifications enter a
// bounded queue and a single goroutine drains it in FIFO order, which keeps
// deliveries for any label in the order they were confirmed. When the queue
// is full new notifications are dropped and counted rather than blocking the
// caller.
type Worker struct {
	dispatcher *Dispatcher
	queue      chan *Notification
	metrics    *observability.Metrics
	logger     *slog.Logger
	sink       ReportSink

	gracePeriod time.Duration

	mu      sync.Mutex
	history []*DeliveryReport
	dropped uint64
	stopped bool

	stopOnce sync.Once
	done     chan struct{}
}

// NewWorker creates a delivery worker with the given queue capacity.
func NewWorker(dispatcher *Dispatcher, queueSize int, gracePeriod time.Duration, metrics *observability.Metrics) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		dispatcher:  dispatcher,
		queue:       make(chan *Notification, queueSize),
		metrics:     metrics,
		logger:      logging.ForService("notification"),
		gracePeriod: gracePeriod,
		done:        make(chan struct{}),
	}
}

// SetReportSink registers a sink called after each delivery. Must be set
// before Start.
func (w *Worker) SetReportSink(sink ReportSink) {
	w.sink = sink
}

// Start launches the drain goroutine. It returns immediately.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Enqueue adds a notification to the delivery queue without blocking. It
// returns false when the queue is full or the worker has been stopped.
func (w *Worker) Enqueue(n *Notification) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		w.logger.Warn("worker stopped, notification rejected", "id", n.ID, "label", n.Label)
		return false
	}

	select {
	case w.queue <- n:
		if w.metrics != nil {
			w.metrics.QueueDepth.Set(float64(len(w.queue)))
		}
		return true
	default:
		w.dropped++
		if w.metrics != nil {
			w.metrics.QueueDropped.Inc()
		}
		w.logger.Warn("delivery queue full, notification dropped", "id", n.ID, "label", n.Label)
		return false
	}
}

// Stop closes the queue and waits up to the grace period for queued
// deliveries to finish. Enqueue calls after Stop are rejected.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		close(w.queue)
		w.mu.Unlock()

		select {
		case <-w.done:
		case <-time.After(w.gracePeriod):
			w.logger.Warn("shutdown grace period expired with deliveries pending")
		}
	})
}

// Dropped returns the number of notifications dropped due to a full queue.
func (w *Worker) Dropped() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Recent returns the most recent delivery reports, newest first.
func (w *Worker) Recent(limit int) []*DeliveryReport {
	w.mu.Lock()
	defer w.mu.Unlock()

	if limit <= 0 || limit > len(w.history) {
		limit = len(w.history)
	}
	out := make([]*DeliveryReport, 0, limit)
	for i := len(w.history) - 1; i >= len(w.history)-limit; i-- {
		out = append(out, w.history[i])
	}
	return out
}

// QueueDepth returns the number of notifications waiting in the queue.
func (w *Worker) QueueDepth() int {
	return len(w.queue)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	for n := range w.queue {
		if w.metrics != nil {
			w.metrics.QueueDepth.Set(float64(len(w.queue)))
		}

		report := w.dispatcher.Notify(ctx, n)
		w.record(report)
		if w.sink != nil {
			w.sink(n, report)
		}
	}
}

func (w *Worker) record(report *DeliveryReport) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.history = append(w.history, report)
	if len(w.history) > defaultHistorySize {
		w.history = w.history[len(w.history)-defaultHistorySize:]
	}
}
