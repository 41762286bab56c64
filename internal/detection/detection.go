// Package detection defines the detection event model produced by the
// external camera and inference collaborator, and sources that supply frames
// of events to the monitor.
package detection

import (
	"sort"
	"strings"
	"time"
)

// Box is a bounding box in pixel coordinates.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Event is a single detection in a frame. Events are immutable values.
type Event struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        Box       `json:"box"`
	Time       time.Time `json:"time"`
}

// Frame is the full detection output for one processed video frame,
// together with the encoded frame image when available.
type Frame struct {
	Events []Event
	Image  []byte // encoded JPEG of the annotated frame, may be nil
	Time   time.Time
}

// Subject returns the canonical subject key for an event label. Labels from
// the detector are free-form ("Miso", "person"); state tracking and cooldown
// are keyed by the lowercased form.
func Subject(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// PresentLabels returns the distinct subjects present in the events whose
// confidence meets minConfidence, in lexicographic order. Deterministic
// ordering keeps per-frame processing reproducible when several subjects are
// confirmed in the same frame.
func PresentLabels(events []Event, minConfidence float64) []string {
	seen := make(map[string]struct{}, len(events))
	for i := range events {
		if events[i].Confidence < minConfidence {
			continue
		}
		seen[Subject(events[i].Label)] = struct{}{}
	}

	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// BestEvent returns the highest-confidence event for the given subject, or
// false when the subject is not present in the frame.
func BestEvent(events []Event, subject string) (Event, bool) {
	var best Event
	found := false
	for i := range events {
		if Subject(events[i].Label) != subject {
			continue
		}
		if !found || events[i].Confidence > best.Confidence {
			best = events[i]
			found = true
		}
	}
	return best, found
}
