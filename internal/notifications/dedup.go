package notifications

import (
	"sync"
	"time"
)

// Deduper suppresses repeats of the same key within a window. First sight
// of a key passes and starts the window; later sightings inside the
// window are dropped.
type Deduper struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

func NewDeduper(window time.Duration) *Deduper {
	return &Deduper{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

func (d *Deduper) Allow(key string) bool {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[key]; ok && now.Sub(last) <= d.window {
		return false
	}
	d.seen[key] = now

	// Drop expired entries so the map stays bounded by the set of keys
	// active within one window.
	for k, ts := range d.seen {
		if now.Sub(ts) > d.window {
			delete(d.seen, k)
		}
	}
	return true
}
