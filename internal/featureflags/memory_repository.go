package featureflags

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository keeps overrides in process memory. It backs the API
// when no database is configured and hands out copies only.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]*Flag
}

// NewInMemoryRepository creates a repository seeded with the given overrides.
func NewInMemoryRepository(seed ...*Flag) *InMemoryRepository {
	r := &InMemoryRepository{flags: make(map[string]*Flag, len(seed))}
	for _, f := range seed {
		r.flags[f.Key] = f.clone()
	}
	return r
}

func (r *InMemoryRepository) GetFlag(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flags[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return f.clone(), nil
}

func (r *InMemoryRepository) ListFlags(_ context.Context) ([]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Flag, 0, len(r.flags))
	for _, f := range r.flags {
		out = append(out, f.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *InMemoryRepository) SaveFlags(_ context.Context, flags []*Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range flags {
		r.flags[f.Key] = f.clone()
	}
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
