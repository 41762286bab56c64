package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) Interface {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(label string, createdAt time.Time) *NotificationRecord {
	return &NotificationRecord{
		UUID:       uuid.New().String(),
		Kind:       "detection",
		Label:      label,
		Confidence: 0.9,
		Message:    label + " detected",
		CreatedAt:  createdAt,
		Deliveries: []DeliveryRecord{
			{Platform: "telegram", Success: true, DurationMs: 120},
			{Platform: "discord", Success: false, Error: "webhook returned status 500"},
		},
	}
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestSaveAndRecent(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	require.NoError(t, store.Save(record("miso", now.Add(-2*time.Minute))))
	require.NoError(t, store.Save(record("luna", now.Add(-time.Minute))))
	require.NoError(t, store.Save(record("miso", now)))

	records, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "miso", records[0].Label)
	assert.Equal(t, "luna", records[1].Label)

	require.Len(t, records[0].Deliveries, 2)
	assert.Equal(t, "telegram", records[0].Deliveries[0].Platform)
	assert.True(t, records[0].Deliveries[0].Success)
	assert.False(t, records[0].Deliveries[1].Success)
}

func TestCountsByLabel(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	for range 3 {
		require.NoError(t, store.Save(record("miso", now)))
	}
	require.NoError(t, store.Save(record("luna", now)))

	counts, err := store.CountsByLabel()
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "miso", counts[0].Label)
	assert.EqualValues(t, 3, counts[0].Count)
	assert.Equal(t, "luna", counts[1].Label)
	assert.EqualValues(t, 1, counts[1].Count)
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	require.NoError(t, store.Save(record("old", now.Add(-48*time.Hour))))
	require.NoError(t, store.Save(record("fresh", now)))

	removed, err := store.Prune(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	records, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].Label)
}

func TestOperationsOnClosedStore(t *testing.T) {
	store := &SQLiteStore{path: "unused.db"}
	require.Error(t, store.Save(&NotificationRecord{}))
	_, err := store.Recent(5)
	require.Error(t, err)
}
