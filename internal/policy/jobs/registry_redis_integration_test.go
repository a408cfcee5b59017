//go:build integration

package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"polizalab/internal/policy/jobs"
	"polizalab/pkg/testutil/containers"
)

type RedisRegistrySuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	registry *jobs.Redis
}

func TestRedisRegistrySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisRegistrySuite))
}

func (s *RedisRegistrySuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.registry = jobs.NewRedis(s.redis.Client)
}

func (s *RedisRegistrySuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisRegistrySuite) TestAddPendingRemove() {
	ctx := context.Background()
	job := jobs.Job{PolicyID: uuid.New(), JobID: "task-redis-1", SubmittedAt: time.Now().UTC().Truncate(time.Second)}

	s.Require().NoError(s.registry.Add(ctx, job))

	pending, err := s.registry.Pending(ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(job.PolicyID, pending[0].PolicyID)
	s.Equal(job.JobID, pending[0].JobID)

	s.Require().NoError(s.registry.Remove(ctx, job.PolicyID))
	pending, err = s.registry.Pending(ctx)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *RedisRegistrySuite) TestAddSetsRetention() {
	ctx := context.Background()
	job := jobs.Job{PolicyID: uuid.New(), JobID: "task-redis-3", SubmittedAt: time.Now().UTC()}
	s.Require().NoError(s.registry.Add(ctx, job))

	// Abandoned entries must not linger forever, so the hash carries
	// an expiry refreshed on every registration.
	ttl, err := s.redis.Client.TTL(ctx, "polizalab:extraction:pending").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, 24*time.Hour)
}

func (s *RedisRegistrySuite) TestSurvivesReconnect() {
	ctx := context.Background()
	job := jobs.Job{PolicyID: uuid.New(), JobID: "task-redis-2", SubmittedAt: time.Now().UTC().Truncate(time.Second)}
	s.Require().NoError(s.registry.Add(ctx, job))

	// A fresh registry over the same backend sees the entry: pending
	// jobs outlive the process that submitted them.
	fresh := jobs.NewRedis(s.redis.Client)
	pending, err := fresh.Pending(ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(job.JobID, pending[0].JobID)
}
