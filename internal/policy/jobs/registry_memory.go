package jobs

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemory is the single-process registry used when Redis is not
// configured and in tests.
type InMemory struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]Job
}

func NewInMemory() *InMemory {
	return &InMemory{jobs: make(map[uuid.UUID]Job)}
}

func (r *InMemory) Add(ctx context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.PolicyID] = job
	return nil
}

func (r *InMemory) Remove(ctx context.Context, policyID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, policyID)
	return nil
}

func (r *InMemory) Pending(ctx context.Context) ([]Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}
