package notification

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Deduper suppresses identical notifications dispatched within a short
// window, protecting against upstream glitches that confirm the same subject
// repeatedly (for example a cooldown of zero in a test configuration).
type Deduper struct {
	cache *gocache.Cache
}

// NewDeduper creates a deduper with the given suppression window. A zero or
// negative window disables deduplication.
func NewDeduper(window time.Duration) *Deduper {
	if window <= 0 {
		return &Deduper{}
	}
	return &Deduper{
		cache: gocache.New(window, 2*window),
	}
}

// ShouldSend reports whether the notification is new within the window, and
// records it when it is.
func (d *Deduper) ShouldSend(n *Notification) bool {
	if d.cache == nil {
		return true
	}
	key := n.DedupeKey()
	if _, found := d.cache.Get(key); found {
		return false
	}
	d.cache.SetDefault(key, struct{}{})
	return true
}
