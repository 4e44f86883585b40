package engine

import (
	"sync"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/docstore"
)

// Registry owns one engine per child, created lazily on first request.
type Registry struct {
	store docstore.Store
	opts  Options

	mu      sync.Mutex
	engines map[string]*Engine
	closed  bool
}

// NewRegistry builds a registry over the given store.
func NewRegistry(store docstore.Store, opts Options) *Registry {
	return &Registry{
		store:   store,
		opts:    opts,
		engines: make(map[string]*Engine),
	}
}

// Get returns the engine for childID, starting one if none exists yet.
// A nil engine means the registry is shut down.
func (r *Registry) Get(childID string) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if e, ok := r.engines[childID]; ok {
		return e
	}
	e := New(childID, r.store, r.opts)
	r.engines[childID] = e
	return e
}

// Release tears down the engine for childID, if any.
func (r *Registry) Release(childID string) {
	r.mu.Lock()
	e, ok := r.engines[childID]
	delete(r.engines, childID)
	r.mu.Unlock()
	if ok {
		e.Close()
	}
}

// Close tears down every engine. The registry rejects new children after.
func (r *Registry) Close() {
	r.mu.Lock()
	engines := r.engines
	r.engines = make(map[string]*Engine)
	r.closed = true
	r.mu.Unlock()

	for _, e := range engines {
		e.Close()
	}
}
