package job

import (
	"context"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
// Suitable for development and testing; swap for persistent storage in production.
type MemoryRepository struct {
	mu    sync.RWMutex
	plans map[string]*Job
}

// NewMemoryRepository creates a new in-memory plan repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		plans: make(map[string]*Job),
	}
}

// Save persists a plan to the in-memory storage.
// Creates a clone to avoid external mutations.
func (r *MemoryRepository) Save(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[job.ID] = job.Clone()
	return nil
}

// FindByID retrieves a plan by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.plans[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j.Clone(), nil
}

// List returns all plans in the repository.
// Returns clones to prevent external mutations.
func (r *MemoryRepository) List(_ context.Context) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Job, 0, len(r.plans))
	for _, j := range r.plans {
		result = append(result, j.Clone())
	}
	return result, nil
}

// Delete removes a plan from storage.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[id]; !ok {
		return ErrJobNotFound
	}
	delete(r.plans, id)
	return nil
}
