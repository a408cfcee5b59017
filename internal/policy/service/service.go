// Package service owns the policy lifecycle: it is the only component
// that mutates persisted policy state, and it coordinates the extraction
// job client with the confidence gate.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"polizalab/internal/platform/metrics"
	"polizalab/internal/policy/confidence"
	"polizalab/internal/policy/events"
	"polizalab/internal/policy/extraction"
	"polizalab/internal/policy/jobs"
	"polizalab/internal/policy/models"
	"polizalab/internal/policy/renewal"
	"polizalab/internal/policy/store"
	dErrors "polizalab/pkg/domain-errors"
	"polizalab/pkg/platform/sentinel"
)

// ObjectStore is the document bucket surface the service needs.
type ObjectStore interface {
	Bucket() string
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Config carries the gate and upload knobs.
type Config struct {
	ConfidenceThreshold float64
	RequiredFields      []string
	MaxFileBytes        int64
	PresignedExpiry     time.Duration
}

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// Service implements the ingestion orchestrator and lifecycle state
// machine over a Store.
type Service struct {
	store     store.Store
	objects   ObjectStore
	extractor extraction.Client
	registry  jobs.Registry
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       Config

	now func() time.Time
}

func New(
	st store.Store,
	objects ObjectStore,
	extractor extraction.Client,
	registry jobs.Registry,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if cfg.PresignedExpiry <= 0 {
		cfg.PresignedExpiry = 5 * time.Minute
	}
	return &Service{
		store:     st,
		objects:   objects,
		extractor: extractor,
		registry:  registry,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Snapshot is the read model handed to clients: the stored policy plus
// values derived at read time.
type Snapshot struct {
	*models.Policy
	// RenewalStatus is recomputed on every read, never cached.
	RenewalStatus  renewal.Bucket `json:"renewalStatus,omitempty"`
	OriginalDocURL string         `json:"originalDocUrl,omitempty"`
}

// UploadRequest is the metadata for a new document upload.
type UploadRequest struct {
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
}

// UploadGrant is the answer to an upload-intent: the new policy plus a
// presigned URL the client PUTs the bytes to.
type UploadGrant struct {
	PolicyID        uuid.UUID `json:"policyId"`
	S3KeyOriginal   string    `json:"s3KeyOriginal"`
	PresignedPutURL string    `json:"presignedPutUrl"`
	ExpiresIn       int64     `json:"expiresIn"`
}

// CreateUpload registers a new policy in CREATED and grants an upload URL.
func (s *Service) CreateUpload(ctx context.Context, userID string, req UploadRequest) (*UploadGrant, error) {
	if !allowedContentTypes[req.ContentType] {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid contentType, allowed: application/pdf, image/png, image/jpeg")
	}
	if req.FileSizeBytes <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "fileSizeBytes must be positive")
	}
	if req.FileSizeBytes > s.cfg.MaxFileBytes {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("file too large, max %d bytes", s.cfg.MaxFileBytes))
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "document"
	}
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		ext = "bin"
	}

	now := s.now().UTC()
	policy := &models.Policy{
		ID:             uuid.New(),
		UserID:         userID,
		Status:         models.StatusCreated,
		SourceFileName: fileName,
		ContentType:    req.ContentType,
		FileSizeBytes:  req.FileSizeBytes,
		S3Bucket:       s.objects.Bucket(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	policy.S3KeyOriginal = fmt.Sprintf("policies/%s/%s/original.%s", userID, policy.ID, ext)

	if err := s.store.Create(ctx, policy); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create policy")
	}

	url, err := s.objects.PresignPut(ctx, policy.S3KeyOriginal, req.ContentType, s.cfg.PresignedExpiry)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to presign upload")
	}

	return &UploadGrant{
		PolicyID:        policy.ID,
		S3KeyOriginal:   policy.S3KeyOriginal,
		PresignedPutURL: url,
		ExpiresIn:       int64(s.cfg.PresignedExpiry / time.Second),
	}, nil
}

// CompleteUpload acknowledges that the document bytes landed in the
// bucket: CREATED → UPLOADED.
func (s *Service) CompleteUpload(ctx context.Context, userID string, policyID uuid.UUID) (*Snapshot, error) {
	var from models.PolicyStatus
	updated, err := s.update(ctx, userID, policyID, func(p *models.Policy) error {
		from = p.Status
		return s.transition(p, models.StatusUploaded)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, from)
	return s.snapshot(ctx, updated)
}

// Ingest dispatches extraction for an UPLOADED policy. A FAILED policy
// re-enters the same path: the retry loop is re-ingestion, not a
// separate primitive. Any other status conflicts, so a second Ingest
// while PROCESSING fails fast instead of double-submitting.
func (s *Service) Ingest(ctx context.Context, userID string, policyID uuid.UUID) (*Snapshot, error) {
	var from models.PolicyStatus
	updated, err := s.update(ctx, userID, policyID, func(p *models.Policy) error {
		from = p.Status
		switch p.Status {
		case models.StatusUploaded:
		case models.StatusFailed:
			// FAILED → UPLOADED leg of the retry loop.
			if err := s.transition(p, models.StatusUploaded); err != nil {
				return err
			}
			p.LastError = ""
			p.RetryCount++
		default:
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("cannot ingest policy with status=%s", p.Status))
		}
		return s.transition(p, models.StatusProcessing)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, from)
	if s.metrics != nil {
		s.metrics.IngestsStarted.Inc()
	}

	jobID, err := s.extractor.Submit(ctx, extraction.Submission{
		PolicyID:    updated.ID.String(),
		Bucket:      updated.S3Bucket,
		Key:         updated.S3KeyOriginal,
		ContentType: updated.ContentType,
	})
	if err != nil {
		// Submission exhausted its retries; record the failure so the
		// caller can re-ingest later.
		s.logger.ErrorContext(ctx, "extraction submit failed",
			"policy_id", updated.ID,
			"error", err.Error(),
		)
		failed, ferr := s.failExtraction(ctx, policyID, "submission failed: "+err.Error())
		if ferr != nil {
			return nil, ferr
		}
		return s.snapshot(ctx, failed)
	}

	updated, err = s.update(ctx, userID, policyID, func(p *models.Policy) error {
		p.ExtractionJobID = jobID
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.registry.Add(ctx, jobs.Job{PolicyID: policyID, JobID: jobID, SubmittedAt: s.now().UTC()}); err != nil {
		s.logger.WarnContext(ctx, "failed to register pending job; callback delivery still applies",
			"policy_id", policyID,
			"error", err.Error(),
		)
	}
	return s.snapshot(ctx, updated)
}

// CompleteExtraction applies a resolved extraction result to a
// PROCESSING policy. Both the webhook callback and the poller land
// here; whichever arrives second finds the policy already settled and
// gets a conflict, which callers treat as "done elsewhere".
func (s *Service) CompleteExtraction(ctx context.Context, policyID uuid.UUID, result *extraction.Result) error {
	if result == nil || result.State == extraction.StatePending {
		return nil
	}

	if result.State == extraction.StateFailed {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "extraction failed"
		}
		if _, err := s.failExtraction(ctx, policyID, msg); err != nil {
			return err
		}
		s.observeDuration(ctx, policyID)
		_ = s.registry.Remove(ctx, policyID)
		return nil
	}

	present := make(map[string]bool, len(result.FieldConfidence))
	for field := range result.FieldConfidence {
		present[field] = true
	}
	gate := confidence.Evaluate(result.FieldConfidence, present, result.FlaggedFields, s.cfg.RequiredFields, s.cfg.ConfidenceThreshold)

	var from models.PolicyStatus
	updated, err := s.update(ctx, "", policyID, func(p *models.Policy) error {
		from = p.Status
		target := models.StatusExtracted
		if gate.NeedsReview {
			target = models.StatusNeedsReview
		}
		if err := s.transition(p, target); err != nil {
			return err
		}
		p.Fields = p.Fields.Merge(result.Fields)
		if p.Fields.FechaRenovacion == "" {
			p.Fields.FechaRenovacion = renewal.Date(p.Fields.PolicyType, p.Fields.StartDate)
		}
		p.FieldConfidence = result.FieldConfidence
		p.NeedsReviewFields = gate.FlaggedFields
		p.LastError = ""
		return nil
	})
	if err != nil {
		return err
	}
	s.observeDuration(ctx, policyID)
	_ = s.registry.Remove(ctx, policyID)
	s.publish(ctx, updated, from)
	if s.metrics != nil {
		s.metrics.ExtractionsSucceeded.Inc()
		if gate.NeedsReview {
			s.metrics.ReviewsRequired.Inc()
		}
	}
	return nil
}

// observeDuration records time from submission to resolution while the
// registry entry still exists.
func (s *Service) observeDuration(ctx context.Context, policyID uuid.UUID) {
	if s.metrics == nil {
		return
	}
	pending, err := s.registry.Pending(ctx)
	if err != nil {
		return
	}
	for _, job := range pending {
		if job.PolicyID == policyID {
			s.metrics.ExtractionDuration.Observe(s.now().Sub(job.SubmittedAt).Seconds())
			return
		}
	}
}

// CompleteExtractionByJob resolves a job id to the policy that is
// waiting on it and applies the result. Unknown job ids are rejected;
// a job already settled by the poller is gone from the registry, so a
// late callback lands here too.
func (s *Service) CompleteExtractionByJob(ctx context.Context, jobID string, result *extraction.Result) error {
	pending, err := s.registry.Pending(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending jobs")
	}
	for _, job := range pending {
		if job.JobID == jobID {
			return s.CompleteExtraction(ctx, job.PolicyID, result)
		}
	}
	return dErrors.New(dErrors.CodeNotFound, "unknown extraction job")
}

// failExtraction records a FAILED outcome with its message. Fields and
// confidence keep their pre-attempt values.
func (s *Service) failExtraction(ctx context.Context, policyID uuid.UUID, message string) (*models.Policy, error) {
	var from models.PolicyStatus
	updated, err := s.update(ctx, "", policyID, func(p *models.Policy) error {
		from = p.Status
		if err := s.transition(p, models.StatusFailed); err != nil {
			return err
		}
		p.LastError = message
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, from)
	if s.metrics != nil {
		s.metrics.ExtractionsFailed.Inc()
	}
	return updated, nil
}

// Confirm is the explicit human sign-off: NEEDS_REVIEW (or EXTRACTED)
// → VERIFIED. Corrected field values may ride along in the same action.
func (s *Service) Confirm(ctx context.Context, userID string, policyID uuid.UUID, patch models.Fields) (*Snapshot, error) {
	var from models.PolicyStatus
	updated, err := s.update(ctx, userID, policyID, func(p *models.Policy) error {
		from = p.Status
		if err := s.transition(p, models.StatusVerified); err != nil {
			return err
		}
		p.Fields = p.Fields.Merge(patch)
		p.NeedsReviewFields = nil
		now := s.now().UTC()
		p.VerifiedAt = &now
		p.VerifiedBy = userID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, from)
	return s.snapshot(ctx, updated)
}

// Patch merges the provided fields without touching status, confidence,
// or the captured review list. Editing requires an extraction baseline.
func (s *Service) Patch(ctx context.Context, userID string, policyID uuid.UUID, patch models.Fields) (*Snapshot, error) {
	updated, err := s.update(ctx, userID, policyID, func(p *models.Policy) error {
		if !p.Status.Editable() {
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("cannot edit policy with status=%s", p.Status))
		}
		p.Fields = p.Fields.Merge(patch)
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, updated)
}

// MarkRenewed records that the agent closed the renewal, optionally
// linking the replacement policy.
func (s *Service) MarkRenewed(ctx context.Context, userID string, policyID uuid.UUID, newPolicyID string) (*Snapshot, error) {
	updated, err := s.update(ctx, userID, policyID, func(p *models.Policy) error {
		now := s.now().UTC()
		p.RenewalOutcome = models.OutcomeRenewed
		p.RenewalOutcomeAt = &now
		p.RenewedPolicyID = strings.TrimSpace(newPolicyID)
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, updated)
}

// MarkRenewalLost records a lost renewal with its reason.
func (s *Service) MarkRenewalLost(ctx context.Context, userID string, policyID uuid.UUID, reason string) (*Snapshot, error) {
	reason = strings.ToUpper(strings.TrimSpace(reason))
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if !models.RenewalLostReasons[reason] {
		return nil, dErrors.New(dErrors.CodeValidation, "reason must be one of: CAMBIO_PLANES, COBERTURA, COMPETENCIA, OTRO, PRECIO, SIN_RESPUESTA")
	}
	updated, err := s.update(ctx, userID, policyID, func(p *models.Policy) error {
		now := s.now().UTC()
		p.RenewalOutcome = models.OutcomeLost
		p.RenewalLostReason = reason
		p.RenewalOutcomeAt = &now
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, updated)
}

// GetSnapshot is the status-sync read path. Ownership is enforced
// before any field value leaves the store; an unowned policy reads the
// same as a missing one.
func (s *Service) GetSnapshot(ctx context.Context, userID string, policyID uuid.UUID) (*Snapshot, error) {
	policy, err := s.store.Get(ctx, policyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}
	if policy.UserID != userID {
		return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
	}
	return s.snapshot(ctx, policy)
}

// List returns the user's policies, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*Snapshot, error) {
	policies, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	out := make([]*Snapshot, 0, len(policies))
	for _, p := range policies {
		out = append(out, s.enrich(p))
	}
	return out, nil
}

// renewalWindows maps the query filter onto cumulative bucket sets.
var renewalWindows = map[string][]renewal.Bucket{
	"overdue": {renewal.Overdue},
	"30":      {renewal.Days30},
	"60":      {renewal.Days30, renewal.Days60},
	"90":      {renewal.Days30, renewal.Days60, renewal.Days90},
	"":        {renewal.Overdue, renewal.Days30, renewal.Days60, renewal.Days90},
}

// ListRenewals returns upcoming renewals ascending by renewal date,
// ties broken by policy id. NOT_URGENT and dateless policies never
// appear; neither do policies whose renewal was already resolved.
func (s *Service) ListRenewals(ctx context.Context, userID, window string) ([]*Snapshot, error) {
	buckets, ok := renewalWindows[window]
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "window must be one of: overdue, 30, 60, 90")
	}
	allowed := make(map[renewal.Bucket]bool, len(buckets))
	for _, b := range buckets {
		allowed[b] = true
	}

	policies, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}

	var out []*Snapshot
	for _, p := range policies {
		switch p.Status {
		case models.StatusExtracted, models.StatusNeedsReview, models.StatusVerified:
		default:
			continue
		}
		if p.RenewalOutcome != "" {
			continue
		}
		snap := s.enrich(p)
		if snap.RenewalStatus == "" || !allowed[snap.RenewalStatus] {
			continue
		}
		out = append(out, snap)
	}

	sort.Slice(out, func(i, j int) bool {
		di := renewal.EffectiveDate(out[i].Fields)
		dj := renewal.EffectiveDate(out[j].Fields)
		if di == dj {
			return out[i].ID.String() < out[j].ID.String()
		}
		return di < dj
	})
	return out, nil
}

// update loads, authorizes, mutates, and persists in one atomic step.
// An empty userID skips the ownership check for internal callers (the
// extraction completion path owns no user context).
func (s *Service) update(ctx context.Context, userID string, policyID uuid.UUID, mutate func(*models.Policy) error) (*models.Policy, error) {
	updated, err := s.store.Update(ctx, policyID, func(p *models.Policy) error {
		if userID != "" && p.UserID != userID {
			return dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return mutate(p)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		var gw dErrors.GatewayError
		if errors.As(err, &gw) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update policy")
	}
	return updated, nil
}

// transition applies one legal state-machine step and stamps updatedAt.
func (s *Service) transition(p *models.Policy, to models.PolicyStatus) error {
	if !models.CanTransition(p.Status, to) {
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("illegal transition %s -> %s", p.Status, to))
	}
	p.Status = to
	p.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Service) publish(ctx context.Context, p *models.Policy, from models.PolicyStatus) {
	if from == p.Status {
		return
	}
	s.publisher.Publish(ctx, events.Event{
		PolicyID: p.ID.String(),
		UserID:   p.UserID,
		From:     string(from),
		To:       string(p.Status),
		At:       s.now().UTC(),
	})
}

// enrich computes the read-time derivations without touching storage.
func (s *Service) enrich(p *models.Policy) *Snapshot {
	snap := &Snapshot{Policy: p}
	if date := renewal.EffectiveDate(p.Fields); date != "" {
		if p.Fields.FechaRenovacion == "" {
			p.Fields.FechaRenovacion = date
		}
		snap.RenewalStatus = renewal.Classify(date, s.now())
	}
	return snap
}

// snapshot enriches and attaches a presigned document URL when possible.
func (s *Service) snapshot(ctx context.Context, p *models.Policy) (*Snapshot, error) {
	snap := s.enrich(p)
	if p.S3KeyOriginal != "" && p.Status != models.StatusCreated && s.objects != nil {
		url, err := s.objects.PresignGet(ctx, p.S3KeyOriginal, time.Hour)
		if err != nil {
			s.logger.WarnContext(ctx, "could not presign document url",
				"policy_id", p.ID,
				"error", err.Error(),
			)
		} else {
			snap.OriginalDocURL = url
		}
	}
	return snap, nil
}
