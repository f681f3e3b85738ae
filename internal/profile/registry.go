package profile

import (
	"context"
	"sync"

	"github.com/taiganautcapital/thekidvault/internal/storage"
)

// Registry hands out one Store per household, opening it from storage on
// first use.
type Registry struct {
	kv     storage.KV
	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates a registry backed by kv.
func NewRegistry(kv storage.KV) *Registry {
	return &Registry{
		kv:     kv,
		stores: make(map[string]*Store),
	}
}

// Get returns the household's store, loading it if needed.
func (r *Registry) Get(ctx context.Context, household string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[household]; ok {
		return s
	}
	s := Open(ctx, r.kv, household)
	r.stores[household] = s
	return s
}

// Evict drops the cached store so the next Get reloads from storage.
func (r *Registry) Evict(household string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, household)
}

// Len returns the number of loaded households.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
