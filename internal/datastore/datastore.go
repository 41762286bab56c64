// Package datastore persists notification history so delivery outcomes
// survive restarts and can be inspected over the status API.
package datastore

import (
	"fmt"
	"time"

	"github.com/petwatch/petwatch-go/internal/logging"
)

// NotificationRecord is a persisted notification with its delivery outcome.
type NotificationRecord struct {
	ID         uint      `gorm:"primaryKey"`
	UUID       string    `gorm:"uniqueIndex;size:36"`
	Kind       string    `gorm:"index;size:16"`
	Label      string    `gorm:"index;size:64"`
	Confidence float64
	Message    string
	ImagePath  string
	CreatedAt  time.Time `gorm:"index"`

	Deliveries []DeliveryRecord `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE"`
}

// DeliveryRecord is the outcome of one platform attempt for a notification.
type DeliveryRecord struct {
	ID             uint   `gorm:"primaryKey"`
	NotificationID uint   `gorm:"index"`
	Platform       string `gorm:"size:32"`
	Success        bool
	DurationMs     int64
	Error          string
}

// LabelCount pairs a label with the number of stored notifications for it.
type LabelCount struct {
	Label string
	Count int64
}

// Interface abstracts the notification history store.
type Interface interface {
	Open() error
	Close() error
	Save(record *NotificationRecord) error
	Recent(limit int) ([]NotificationRecord, error)
	CountsByLabel() ([]LabelCount, error)
	Prune(olderThan time.Time) (int64, error)
}

// New creates a datastore for the configured backend. Only SQLite is
// supported.
func New(path string) (Interface, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{path: path, logger: logging.ForService("datastore")}, nil
}
