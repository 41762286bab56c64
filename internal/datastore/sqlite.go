package datastore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/petwatch/petwatch-go/internal/errors"
)

// SQLiteStore implements Interface backed by a SQLite file.
type SQLiteStore struct {
	path   string
	db     *gorm.DB
	logger *slog.Logger
}

// Open creates the database file if needed and runs migrations.
func (s *SQLiteStore) Open() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("path", dir).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("path", s.path).
			Build()
	}

	if err := db.AutoMigrate(&NotificationRecord{}, &DeliveryRecord{}); err != nil {
		return errors.New(fmt.Errorf("migration failed: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	s.db = db
	s.logger.Info("database opened", "path", s.path)
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save inserts a notification record with its delivery outcomes.
func (s *SQLiteStore) Save(record *NotificationRecord) error {
	if s.db == nil {
		return fmt.Errorf("database is not open")
	}
	if err := s.db.Create(record).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// Recent returns the newest records first, deliveries preloaded.
func (s *SQLiteStore) Recent(limit int) ([]NotificationRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database is not open")
	}
	if limit <= 0 {
		limit = 50
	}
	var records []NotificationRecord
	err := s.db.
		Preload("Deliveries").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return records, nil
}

// CountsByLabel returns per-label notification totals, descending.
func (s *SQLiteStore) CountsByLabel() ([]LabelCount, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database is not open")
	}
	var counts []LabelCount
	err := s.db.
		Model(&NotificationRecord{}).
		Select("label, count(*) as count").
		Where("label <> ''").
		Group("label").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return counts, nil
}

// Prune deletes records created before the cutoff and returns how many were
// removed.
func (s *SQLiteStore) Prune(olderThan time.Time) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database is not open")
	}
	res := s.db.Where("created_at < ?", olderThan).Delete(&NotificationRecord{})
	if res.Error != nil {
		return 0, errors.New(res.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return res.RowsAffected, nil
}
