// Package notification composes alert messages for confirmed detections and
// delivers them to the configured messaging platforms. Delivery is
// asynchronous to the frame loop: the monitor enqueues, a worker drains.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind categorizes a notification.
type Kind string

const (
	// KindDetection is a confirmed pet or person detection
	KindDetection Kind = "detection"
	// KindSystem is a system status notification
	KindSystem Kind = "system"
	// KindTest is a manually triggered test notification
	KindTest Kind = "test"
)

// Notification is a single alert to be delivered to all enabled platforms.
type Notification struct {
	// ID is the unique identifier for the notification
	ID string `json:"id"`
	// Kind categorizes the notification
	Kind Kind `json:"kind"`
	// Label is the detected subject ("miso", "person"), empty for system kinds
	Label string `json:"label,omitempty"`
	// Confidence of the triggering detection, 0..1
	Confidence float64 `json:"confidence,omitempty"`
	// Message is the human-readable alert text
	Message string `json:"message"`
	// ImagePath points at the saved snapshot, empty when unavailable
	ImagePath string `json:"image_path,omitempty"`
	// Timestamp indicates when the notification was created
	Timestamp time.Time `json:"timestamp"`
	// Metadata contains additional context-specific data
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewDetection creates a notification for a confirmed detection. The message
// follows the "<Label> detected (NN% confidence)" form.
func NewDetection(label string, confidence float64, imagePath string, now time.Time) *Notification {
	return &Notification{
		ID:         uuid.New().String(),
		Kind:       KindDetection,
		Label:      label,
		Confidence: confidence,
		Message:    fmt.Sprintf("%s detected (%.0f%% confidence)", capitalize(label), confidence*100),
		ImagePath:  imagePath,
		Timestamp:  now,
		Metadata:   make(map[string]any),
	}
}

// NewSystem creates a system notification with the given message.
func NewSystem(kind Kind, message string, now time.Time) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		Timestamp: now,
		Metadata:  make(map[string]any),
	}
}

// WithMetadata adds metadata and returns the notification for chaining
func (n *Notification) WithMetadata(key string, value any) *Notification {
	if n.Metadata == nil {
		n.Metadata = make(map[string]any)
	}
	n.Metadata[key] = value
	return n
}

// DedupeKey identifies notifications that should be considered duplicates
// within the dedupe window: same kind, label and message.
func (n *Notification) DedupeKey() string {
	return string(n.Kind) + "|" + n.Label + "|" + n.Message
}

// Provider is a capability interface implemented by each messaging backend.
// Implementations must be safe for concurrent use.
type Provider interface {
	GetName() string
	ValidateConfig() error
	Send(ctx context.Context, n *Notification) error
	IsEnabled() bool
}

// PlatformResult is the outcome of one delivery attempt on one platform.
type PlatformResult struct {
	Platform string        `json:"platform"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
}

// DeliveryReport aggregates the per-platform results of one notification.
// A failed platform never aborts the others; the caller inspects the report
// to decide what, if anything, to do about failures.
type DeliveryReport struct {
	NotificationID string           `json:"notification_id"`
	Label          string           `json:"label,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	Results        []PlatformResult `json:"results"`
}

// Succeeded returns the number of successful platform deliveries.
func (r *DeliveryReport) Succeeded() int {
	count := 0
	for i := range r.Results {
		if r.Results[i].Success {
			count++
		}
	}
	return count
}

// Failed returns the number of failed platform deliveries.
func (r *DeliveryReport) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// capitalize upper-cases the first rune of a label for display.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
