package terminal

import "sync"

// Deduper remembers message ids already shown. The server relays every
// message to its sender too and may replay on a resubscribed stream, so the
// id is the only reliable "seen it" key.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// First reports whether id has not been seen before, and records it.
func (d *Deduper) First(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}
