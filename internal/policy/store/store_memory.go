package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"polizalab/internal/policy/models"
	"polizalab/pkg/platform/sentinel"
)

// InMemory keeps policies in a map. Snapshots are deep copies so callers
// can never mutate stored state outside Update.
type InMemory struct {
	mu       sync.RWMutex
	policies map[uuid.UUID]*models.Policy
}

func NewInMemory() *InMemory {
	return &InMemory{policies: make(map[uuid.UUID]*models.Policy)}
}

func (s *InMemory) Create(ctx context.Context, policy *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.policies[policy.ID]; exists {
		return sentinel.ErrConflict
	}
	s.policies[policy.ID] = policy.Clone()
	return nil
}

func (s *InMemory) Get(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policy, ok := s.policies[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return policy.Clone(), nil
}

func (s *InMemory) ListByUser(ctx context.Context, userID string) ([]*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Policy
	for _, policy := range s.policies {
		if policy.UserID == userID {
			out = append(out, policy.Clone())
		}
	}
	// Newest first, matching the index order of the durable store.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update mutates the policy under the store lock. The mutation sees a
// copy; nothing is persisted unless it returns nil.
func (s *InMemory) Update(ctx context.Context, id uuid.UUID, mutate func(*models.Policy) error) (*models.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.policies[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	s.policies[id] = next
	return next.Clone(), nil
}
