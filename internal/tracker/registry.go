package tracker

import (
	"sort"
	"sync"
)

// Registry keeps one Manager per named feed.
type Registry struct {
	params Params

	mu       sync.RWMutex
	managers map[string]*Manager
}

// NewRegistry returns a registry whose managers all use p.
func NewRegistry(p Params) (*Registry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Registry{params: p, managers: make(map[string]*Manager)}, nil
}

// Get returns the manager for feed, creating it on first use.
func (r *Registry) Get(feed string) *Manager {
	r.mu.RLock()
	mgr, ok := r.managers[feed]
	r.mu.RUnlock()
	if ok {
		return mgr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if mgr, ok := r.managers[feed]; ok {
		return mgr
	}
	// params were validated in NewRegistry
	mgr, _ = NewManager(r.params)
	r.managers[feed] = mgr
	return mgr
}

// Lookup returns the manager for feed without creating one.
func (r *Registry) Lookup(feed string) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mgr, ok := r.managers[feed]
	return mgr, ok
}

// Feeds returns the known feed names in sorted order.
func (r *Registry) Feeds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.managers))
	for name := range r.managers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reset clears the table of feed in place and reports whether the feed
// exists. Holders of the feed's Manager, such as a live serial feed, keep
// writing into the same table.
func (r *Registry) Reset(feed string) bool {
	mgr, ok := r.Lookup(feed)
	if ok {
		mgr.Reset()
	}
	return ok
}
