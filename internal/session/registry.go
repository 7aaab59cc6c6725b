// Package session keeps the table of registered connections and the display
// names they chose. It is a plain data structure: mutations never trigger
// broadcasts, that is left to the coordinator that owns the registry.
package session

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry maps live connection identifiers to display names, preserving the
// order in which connections first registered.
type Registry struct {
	mu    sync.RWMutex
	names *orderedmap.OrderedMap[string, string]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: orderedmap.New[string, string]()}
}

// Put stores name under connID. An existing entry is overwritten in place and
// keeps its position in the roster. The previous name is returned when there
// was one.
func (r *Registry) Put(connID, name string) (previous string, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.names.Set(connID, name)
}

// Remove deletes the entry for connID and reports whether one existed.
func (r *Registry) Remove(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.names.Delete(connID)
}

// Get returns the display name registered under connID.
func (r *Registry) Get(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.names.Get(connID)
}

// Snapshot returns the registered names in join order. The slice is owned by
// the caller.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, r.names.Len())
	for pair := r.names.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Value)
	}
	return names
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.names.Len()
}
