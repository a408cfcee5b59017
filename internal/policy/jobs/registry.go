// Package jobs tracks extraction jobs that have been submitted but not
// yet resolved. The watcher drains this registry; keeping it out of the
// policy row lets the poller enumerate pending work without scanning
// policies.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one in-flight extraction.
type Job struct {
	PolicyID    uuid.UUID `json:"policyId"`
	JobID       string    `json:"jobId"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Registry records in-flight jobs. Implementations must tolerate
// Remove on an already-removed job (callback and poller may race).
type Registry interface {
	Add(ctx context.Context, job Job) error
	Remove(ctx context.Context, policyID uuid.UUID) error
	Pending(ctx context.Context) ([]Job, error)
}
