// Package snapshot stores detection images in a bounded rotating directory.
// Writes are atomic (temp file + rename) so a crash can never leave a
// partially written image counted toward the capacity limit.
package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/petwatch/petwatch-go/internal/errors"
	"github.com/petwatch/petwatch-go/internal/logging"
)

const (
	// snapshot file name layout: <label>_<timestamp>_<seq>.jpg
	timestampLayout = "20060102T150405.000Z"
	snapshotExt     = ".jpg"
	tempPattern     = ".snapshot-*.tmp"
)

// Record describes one stored snapshot.
type Record struct {
	Path      string
	Label     string
	CreatedAt time.Time
	Seq       uint64
}

// Store writes snapshots under a single directory and enforces a capacity
// limit by deleting the oldest files first.
type Store struct {
	dir      string
	maxCount int

	mu  sync.Mutex
	seq uint64

	onEvict func(count int)

	log *slog.Logger
}

// NewStore creates the snapshot directory if needed and returns a store
// keeping at most maxCount images.
func NewStore(dir string, maxCount int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New(err).
			Component("snapshot").
			Category(errors.CategoryFileIO).
			Context("dir", dir).
			Build()
	}
	return &Store{
		dir:      dir,
		maxCount: maxCount,
		log:      logging.ForService("snapshot"),
	}, nil
}

// SetEvictionHook registers a function called with the number of files
// deleted whenever rotation evicts. Must be set before the store is used.
func (s *Store) SetEvictionHook(fn func(count int)) {
	s.onEvict = fn
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes an image for the given label and enforces the capacity limit.
// The file is written to a temp path and renamed into place; the rename is
// the atomicity boundary. Errors are surfaced so the caller can fall back to
// an image-less notification.
func (s *Store) Save(image []byte, label string, now time.Time) (string, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	name := fmt.Sprintf("%s_%s_%d%s",
		sanitizeLabel(label),
		now.UTC().Format(timestampLayout),
		seq,
		snapshotExt,
	)
	finalPath := filepath.Join(s.dir, name)

	if err := s.writeAtomic(finalPath, image); err != nil {
		return "", err
	}

	if evicted, err := s.Rotate(); err != nil {
		// The image itself was saved, rotation failure is logged but the
		// path is still returned.
		s.log.Error("snapshot rotation failed", "error", err)
	} else if evicted > 0 {
		s.log.Debug("evicted old snapshots", "count", evicted)
	}

	return finalPath, nil
}

// writeAtomic writes data to a temp file in the target directory, syncs it
// and renames it to the final path.
func (s *Store) writeAtomic(finalPath string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return errors.New(err).
			Component("snapshot").
			Category(errors.CategoryImageSave).
			Context("dir", s.dir).
			Build()
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpName)
		return errors.New(cause).
			Component("snapshot").
			Category(errors.CategoryImageSave).
			FileContext(finalPath, int64(len(data))).
			Build()
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.New(err).
			Component("snapshot").
			Category(errors.CategoryImageSave).
			FileContext(finalPath, int64(len(data))).
			Build()
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return errors.New(err).
			Component("snapshot").
			Category(errors.CategoryImageSave).
			FileContext(finalPath, int64(len(data))).
			Build()
	}
	return nil
}

// Rotate deletes the oldest snapshots until the stored count is within the
// capacity limit. It returns the number of files deleted.
func (s *Store) Rotate() (int, error) {
	records, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(records) <= s.maxCount {
		return 0, nil
	}

	deleted := 0
	defer func() {
		if deleted > 0 && s.onEvict != nil {
			s.onEvict(deleted)
		}
	}()
	for _, rec := range records[:len(records)-s.maxCount] {
		if err := os.Remove(rec.Path); err != nil {
			return deleted, errors.New(err).
				Component("snapshot").
				Category(errors.CategoryDiskCleanup).
				Context("path", rec.Path).
				Build()
		}
		deleted++
	}
	return deleted, nil
}

// List returns the stored snapshot records sorted oldest first. Temp files
// and foreign files are ignored.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.New(err).
			Component("snapshot").
			Category(errors.CategoryFileIO).
			Context("dir", s.dir).
			Build()
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rec, ok := parseRecord(filepath.Join(s.dir, entry.Name()))
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Seq < records[j].Seq
	})
	return records, nil
}

// Count returns the number of stored snapshots.
func (s *Store) Count() (int, error) {
	records, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// parseRecord parses a snapshot file name of the form
// <label>_<timestamp>_<seq>.jpg. The label itself may contain underscores,
// so the last two parts are taken as timestamp and sequence.
func parseRecord(path string) (Record, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, snapshotExt) {
		return Record{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, snapshotExt), "_")
	if len(parts) < 3 {
		return Record{}, false
	}

	seqStr := parts[len(parts)-1]
	timestampStr := parts[len(parts)-2]
	label := strings.Join(parts[:len(parts)-2], "_")

	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return Record{}, false
	}
	createdAt, err := time.Parse(timestampLayout, timestampStr)
	if err != nil {
		return Record{}, false
	}

	return Record{
		Path:      path,
		Label:     label,
		CreatedAt: createdAt,
		Seq:       seq,
	}, true
}

// sanitizeLabel makes a label safe for use in a file name.
func sanitizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	replacer := strings.NewReplacer("/", "-", "\\", "-", " ", "-")
	label = replacer.Replace(label)
	if label == "" {
		label = "unknown"
	}
	return label
}
