package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const pendingKey = "polizalab:extraction:pending"

// pendingRetention bounds how long abandoned entries survive. Jobs whose
// extraction never settles would otherwise be polled forever; each Add
// refreshes the clock, so active registries never expire mid-flight.
const pendingRetention = 24 * time.Hour

// Redis keeps the pending set in a Redis hash keyed by policy id, so a
// restarted process resumes polling jobs submitted before the restart.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Add(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := r.client.HSet(ctx, pendingKey, job.PolicyID.String(), payload).Err(); err != nil {
		return fmt.Errorf("register job: %w", err)
	}
	if err := r.client.Expire(ctx, pendingKey, pendingRetention).Err(); err != nil {
		return fmt.Errorf("set job retention: %w", err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, policyID uuid.UUID) error {
	if err := r.client.HDel(ctx, pendingKey, policyID.String()).Err(); err != nil {
		return fmt.Errorf("remove job: %w", err)
	}
	return nil
}

func (r *Redis) Pending(ctx context.Context) ([]Job, error) {
	entries, err := r.client.HGetAll(ctx, pendingKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	out := make([]Job, 0, len(entries))
	for _, raw := range entries {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		out = append(out, job)
	}
	return out, nil
}
