// Package store persists policies. Implementations return
// pkg/platform/sentinel errors; the service layer translates them.
package store

import (
	"context"

	"github.com/google/uuid"

	"polizalab/internal/policy/models"
)

// Store is the durable policy repository. Update is the single write
// primitive for existing policies: the mutation runs against the current
// row under exclusive ownership, so concurrent readers observe either
// the pre- or post-mutation snapshot, never a half-applied one. A
// mutation that returns an error aborts the update without persisting.
type Store interface {
	Create(ctx context.Context, policy *models.Policy) error
	Get(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Policy, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*models.Policy) error) (*models.Policy, error)
}
