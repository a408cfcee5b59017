package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"polizalab/internal/policy/models"
	"polizalab/pkg/platform/sentinel"
)

type PolicyStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *PolicyStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestPolicyStoreSuite(t *testing.T) {
	suite.Run(t, new(PolicyStoreSuite))
}

func (s *PolicyStoreSuite) newPolicy(userID string) *models.Policy {
	now := time.Now().UTC()
	return &models.Policy{
		ID:             uuid.New(),
		UserID:         userID,
		Status:         models.StatusCreated,
		SourceFileName: "poliza.pdf",
		ContentType:    "application/pdf",
		FileSizeBytes:  1024,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TestCreationAndLookups verifies the store correctly creates and retrieves policies.
func (s *PolicyStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds policy by ID", func() {
		policy := s.newPolicy("user-1")
		s.Require().NoError(s.store.Create(s.ctx, policy))

		found, err := s.store.Get(s.ctx, policy.ID)
		s.Require().NoError(err)
		s.Equal(policy.SourceFileName, found.SourceFileName)
		s.Equal(models.StatusCreated, found.Status)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.Get(s.ctx, uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate ID", func() {
		policy := s.newPolicy("user-1")
		s.Require().NoError(s.store.Create(s.ctx, policy))
		s.Require().ErrorIs(s.store.Create(s.ctx, policy), sentinel.ErrConflict)
	})
}

// TestIsolation verifies that returned policies are copies, not aliases
// of store state.
func (s *PolicyStoreSuite) TestIsolation() {
	policy := s.newPolicy("user-1")
	s.Require().NoError(s.store.Create(s.ctx, policy))

	found, err := s.store.Get(s.ctx, policy.ID)
	s.Require().NoError(err)
	found.Status = models.StatusVerified
	found.Fields.PolicyNumber = "MUTATED"

	again, err := s.store.Get(s.ctx, policy.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCreated, again.Status)
	s.Empty(again.Fields.PolicyNumber)
}

// TestListByUser verifies per-user scoping and newest-first ordering.
func (s *PolicyStoreSuite) TestListByUser() {
	older := s.newPolicy("user-1")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := s.newPolicy("user-1")
	other := s.newPolicy("user-2")

	s.Require().NoError(s.store.Create(s.ctx, older))
	s.Require().NoError(s.store.Create(s.ctx, newer))
	s.Require().NoError(s.store.Create(s.ctx, other))

	list, err := s.store.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.ID, list[0].ID)
	s.Equal(older.ID, list[1].ID)

	empty, err := s.store.ListByUser(s.ctx, "user-3")
	s.Require().NoError(err)
	s.Empty(empty)
}

// TestUpdate verifies the mutate-under-lock contract.
func (s *PolicyStoreSuite) TestUpdate() {
	s.Run("persists mutations", func() {
		policy := s.newPolicy("user-1")
		s.Require().NoError(s.store.Create(s.ctx, policy))

		updated, err := s.store.Update(s.ctx, policy.ID, func(p *models.Policy) error {
			p.Status = models.StatusUploaded
			p.Fields.PolicyNumber = "POL-777"
			return nil
		})
		s.Require().NoError(err)
		s.Equal(models.StatusUploaded, updated.Status)

		found, err := s.store.Get(s.ctx, policy.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusUploaded, found.Status)
		s.Equal("POL-777", found.Fields.PolicyNumber)
	})

	s.Run("mutation error leaves policy untouched", func() {
		policy := s.newPolicy("user-1")
		s.Require().NoError(s.store.Create(s.ctx, policy))

		boom := errors.New("rejected")
		_, err := s.store.Update(s.ctx, policy.ID, func(p *models.Policy) error {
			p.Status = models.StatusVerified
			return boom
		})
		s.Require().ErrorIs(err, boom)

		found, err := s.store.Get(s.ctx, policy.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCreated, found.Status)
	})

	s.Run("unknown policy", func() {
		_, err := s.store.Update(s.ctx, uuid.New(), func(p *models.Policy) error { return nil })
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestConcurrentUpdates verifies updates serialize: every increment is
// observed, none lost.
func (s *PolicyStoreSuite) TestConcurrentUpdates() {
	policy := s.newPolicy("user-1")
	s.Require().NoError(s.store.Create(s.ctx, policy))

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Update(s.ctx, policy.ID, func(p *models.Policy) error {
				p.RetryCount++
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	found, err := s.store.Get(s.ctx, policy.ID)
	s.Require().NoError(err)
	s.Equal(goroutines, found.RetryCount)
}
