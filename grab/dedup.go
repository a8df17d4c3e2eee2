package grab

import (
	"strings"
	"sync"
)

// dupTracker maps lowered message text to the most recent item produced for
// that text, one entry per distinct text. Keys are never evicted during a
// session; memory grows with distinct texts only. Producers race on track, so
// the map is mutex-guarded; the items themselves are only mutated later by
// the dispatch goroutine.
type dupTracker struct {
	mu      sync.Mutex
	enabled bool
	byText  map[string]*Item
}

func newDupTracker(enabled bool) *dupTracker {
	return &dupTracker{enabled: enabled, byText: make(map[string]*Item)}
}

// track registers item under its lowered text, or returns the existing item
// when the same text is already tracked (the duplicate case).
func (d *dupTracker) track(text string, item *Item) (*Item, bool) {
	if !d.enabled {
		return nil, false
	}
	key := strings.ToLower(text)
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.byText[key]; ok {
		return existing, true
	}
	d.byText[key] = item
	return nil, false
}

// reset forgets all tracked texts; used when the list is cleared so stale
// pointers into dropped history cannot resurface.
func (d *dupTracker) reset() {
	d.mu.Lock()
	d.byText = make(map[string]*Item)
	d.mu.Unlock()
}
