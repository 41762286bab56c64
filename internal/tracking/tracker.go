// Package tracking implements the per-label alert policy: a persistence
// tracker that debounces detections over consecutive frames, and a cooldown
// gate that rate-limits notifications per label.
package tracking

import (
	"sync"
	"time"
)

// Tracker counts consecutive frames in which each label has been observed
// and reports the exact frame a streak reaches the configured threshold.
//
// Tracker is owned by the frame-processing path; methods are synchronized so
// stats can be read concurrently by the status API.
type Tracker struct {
	mu        sync.Mutex
	threshold int
	streaks   map[string]int
}

// NewTracker creates a tracker requiring threshold consecutive frames to
// confirm a detection. A threshold of 0 or 1 disables debouncing: every
// present frame confirms.
func NewTracker(threshold int) *Tracker {
	return &Tracker{
		threshold: threshold,
		streaks:   make(map[string]int),
	}
}

// Observe records the presence or absence of label in the current frame.
// It returns true exactly on the frame where the presence streak first
// reaches the threshold. The comparison is an equality, not ">=": a streak
// fires once, and must be broken by an absence before it can fire again.
func (t *Tracker) Observe(label string, present bool, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !present {
		t.streaks[label] = 0
		return false
	}

	t.streaks[label]++
	if t.threshold <= 1 {
		// no debounce, every present frame confirms
		return true
	}
	return t.streaks[label] == t.threshold
}

// Streak returns the current consecutive-frame count for a label.
func (t *Tracker) Streak(label string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streaks[label]
}

// Labels returns all labels ever observed by this tracker.
func (t *Tracker) Labels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	labels := make([]string, 0, len(t.streaks))
	for label := range t.streaks {
		labels = append(labels, label)
	}
	return labels
}
