package notification

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderedProvider records the label order of deliveries.
type orderedProvider struct {
	mu     sync.Mutex
	labels []string
}

func (o *orderedProvider) GetName() string       { return "ordered" }
func (o *orderedProvider) IsEnabled() bool       { return true }
func (o *orderedProvider) ValidateConfig() error { return nil }

func (o *orderedProvider) Send(_ context.Context, n *Notification) error {
	o.mu.Lock()
	o.labels = append(o.labels, n.Label)
	o.mu.Unlock()
	return nil
}

func (o *orderedProvider) seen() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.labels))
	copy(out, o.labels)
	return out
}

func TestWorkerDeliversInEnqueueOrder(t *testing.T) {
	prov := &orderedProvider{}
	d := newTestDispatcher(t, prov)
	w := NewWorker(d, 32, time.Second, nil)

	var want []string
	for i := range 10 {
		label := fmt.Sprintf("pet%d", i)
		want = append(want, label)
		require.True(t, w.Enqueue(NewDetection(label, 0.9, "", time.Now())))
	}

	w.Start(context.Background())
	w.Stop()

	assert.Equal(t, want, prov.seen())
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	prov := &stubProvider{name: "stub", enabled: true}
	d := newTestDispatcher(t, prov)
	w := NewWorker(d, 2, time.Second, nil)

	// Worker not started, so the queue fills up.
	assert.True(t, w.Enqueue(NewDetection("a", 0.9, "", time.Now())))
	assert.True(t, w.Enqueue(NewDetection("b", 0.9, "", time.Now())))
	assert.False(t, w.Enqueue(NewDetection("c", 0.9, "", time.Now())))
	assert.False(t, w.Enqueue(NewDetection("d", 0.9, "", time.Now())))

	assert.Equal(t, uint64(2), w.Dropped())
	assert.Equal(t, 2, w.QueueDepth())

	w.Start(context.Background())
	w.Stop()
	assert.Equal(t, 2, prov.callCount())
}

func TestWorkerRecentReportsNewestFirst(t *testing.T) {
	prov := &stubProvider{name: "stub", enabled: true}
	d := newTestDispatcher(t, prov)
	w := NewWorker(d, 8, time.Second, nil)

	for i := range 3 {
		w.Enqueue(NewDetection(fmt.Sprintf("pet%d", i), 0.9, "", time.Now()))
	}
	w.Start(context.Background())
	w.Stop()

	recent := w.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "pet2", recent[0].Label)
	assert.Equal(t, "pet1", recent[1].Label)
}

func TestWorkerReportSink(t *testing.T) {
	prov := &stubProvider{name: "stub", enabled: true}
	d := newTestDispatcher(t, prov)
	w := NewWorker(d, 8, time.Second, nil)

	var mu sync.Mutex
	var sunk []*DeliveryReport
	w.SetReportSink(func(_ *Notification, report *DeliveryReport) {
		mu.Lock()
		sunk = append(sunk, report)
		mu.Unlock()
	})

	w.Enqueue(NewDetection("miso", 0.9, "", time.Now()))
	w.Start(context.Background())
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sunk, 1)
	assert.Equal(t, "miso", sunk[0].Label)
	assert.Equal(t, 1, sunk[0].Succeeded())
}

func TestWorkerRejectsEnqueueAfterStop(t *testing.T) {
	prov := &stubProvider{name: "stub", enabled: true}
	d := newTestDispatcher(t, prov)
	w := NewWorker(d, 4, time.Second, nil)

	require.True(t, w.Enqueue(NewDetection("before", 0.9, "", time.Now())))
	w.Start(context.Background())
	w.Stop()

	assert.False(t, w.Enqueue(NewDetection("after", 0.9, "", time.Now())))
	assert.Equal(t, uint64(0), w.Dropped())
	assert.Equal(t, 1, prov.callCount())
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	d := newTestDispatcher(t, &stubProvider{name: "stub", enabled: true})
	w := NewWorker(d, 4, 100*time.Millisecond, nil)
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}
