package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"polizalab/internal/policy/events"
	"polizalab/internal/policy/extraction"
	"polizalab/internal/policy/extraction/mock"
	"polizalab/internal/policy/jobs"
	"polizalab/internal/policy/models"
	"polizalab/internal/policy/renewal"
	"polizalab/internal/policy/store"
	dErrors "polizalab/pkg/domain-errors"
)

const testUser = "user-1"

// fakeObjectStore hands back deterministic URLs without touching S3.
type fakeObjectStore struct{}

func (fakeObjectStore) Bucket() string { return "polizalab-documents-test" }

func (fakeObjectStore) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://s3.test/put/" + key, nil
}

func (fakeObjectStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.test/get/" + key, nil
}

// recordingPublisher captures lifecycle events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) transitions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.From+">"+e.To)
	}
	return out
}

type fixture struct {
	svc       *Service
	store     *store.InMemory
	extractor *mock.MockClient
	registry  *jobs.InMemory
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		store:     store.NewInMemory(),
		extractor: mock.NewMockClient(ctrl),
		registry:  jobs.NewInMemory(),
		publisher: &recordingPublisher{},
	}
	f.svc = New(f.store, fakeObjectStore{}, f.extractor, f.registry, f.publisher, nil, slog.New(slog.DiscardHandler), Config{
		ConfidenceThreshold: 0.75,
		RequiredFields:      []string{"policyNumber", "insuredName", "startDate", "endDate"},
		MaxFileBytes:        20 * 1024 * 1024,
		PresignedExpiry:     5 * time.Minute,
	})
	return f
}

func (f *fixture) createUploaded(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	grant, err := f.svc.CreateUpload(ctx, testUser, UploadRequest{
		FileName:      "poliza.pdf",
		ContentType:   "application/pdf",
		FileSizeBytes: 4096,
	})
	require.NoError(t, err)
	_, err = f.svc.CompleteUpload(ctx, testUser, grant.PolicyID)
	require.NoError(t, err)
	return grant.PolicyID
}

func confidentResult() *extraction.Result {
	return &extraction.Result{
		State: extraction.StateCompleted,
		Fields: models.Fields{
			PolicyNumber: "POL-123",
			InsuredName:  "Juan Perez",
			PolicyType:   "Auto",
			StartDate:    "2026-01-01",
			EndDate:      "2027-01-01",
			PremiumTotal: 9800,
		},
		FieldConfidence: map[string]float64{
			"policyNumber": 0.99,
			"insuredName":  0.95,
			"policyType":   0.90,
			"startDate":    0.92,
			"endDate":      0.91,
			"premiumTotal": 0.88,
		},
	}
}

func TestCreateUploadValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  UploadRequest
	}{
		{"unsupported content type", UploadRequest{FileName: "p.docx", ContentType: "application/msword", FileSizeBytes: 100}},
		{"zero size", UploadRequest{FileName: "p.pdf", ContentType: "application/pdf", FileSizeBytes: 0}},
		{"negative size", UploadRequest{FileName: "p.pdf", ContentType: "application/pdf", FileSizeBytes: -1}},
		{"oversized", UploadRequest{FileName: "p.pdf", ContentType: "application/pdf", FileSizeBytes: 30 * 1024 * 1024}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateUpload(ctx, testUser, tt.req)
			require.Error(t, err)
			assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
		})
	}
}

func TestCreateUploadGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	grant, err := f.svc.CreateUpload(ctx, testUser, UploadRequest{
		FileName:      "mi poliza.pdf",
		ContentType:   "application/pdf",
		FileSizeBytes: 4096,
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("policies/%s/%s/original.pdf", testUser, grant.PolicyID), grant.S3KeyOriginal)
	assert.Contains(t, grant.PresignedPutURL, grant.S3KeyOriginal)
	assert.Equal(t, int64(300), grant.ExpiresIn)

	snap, err := f.svc.GetSnapshot(ctx, testUser, grant.PolicyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, snap.Status)
	assert.Empty(t, snap.OriginalDocURL, "no document URL before upload completes")
}

func TestIngestHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub extraction.Submission) (string, error) {
			assert.Equal(t, policyID.String(), sub.PolicyID)
			assert.Equal(t, "polizalab-documents-test", sub.Bucket)
			return "task-42", nil
		})

	snap, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, snap.Status)
	assert.Equal(t, "task-42", snap.ExtractionJobID)

	pending, err := f.registry.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, policyID, pending[0].PolicyID)
}

func TestIngestRejectsWrongStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	grant, err := f.svc.CreateUpload(ctx, testUser, UploadRequest{
		FileName:      "poliza.pdf",
		ContentType:   "application/pdf",
		FileSizeBytes: 4096,
	})
	require.NoError(t, err)

	// Not yet uploaded.
	_, err = f.svc.Ingest(ctx, testUser, grant.PolicyID)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestIngestConflictWhileProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-1", nil)
	_, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)

	// A second dispatch while the first is in flight must conflict
	// without reaching the extractor again.
	_, err = f.svc.Ingest(ctx, testUser, policyID)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestIngestSubmitFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", errors.New("extraction service unreachable"))

	snap, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, snap.Status)
	assert.Contains(t, snap.LastError, "unreachable")
}

func TestRetryAfterFailureClearsError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", errors.New("boom"))
	snap, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, snap.Status)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-2", nil)
	snap, err = f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, snap.Status)
	assert.Empty(t, snap.LastError)
	assert.Equal(t, 1, snap.RetryCount)
}

func TestCompleteExtractionConfident(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-1", nil)
	_, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)

	require.NoError(t, f.svc.CompleteExtraction(ctx, policyID, confidentResult()))

	snap, err := f.svc.GetSnapshot(ctx, testUser, policyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExtracted, snap.Status)
	assert.Empty(t, snap.NeedsReviewFields)
	assert.Equal(t, "POL-123", snap.Fields.PolicyNumber)
	// Renewal date derived from start date at completion.
	assert.Equal(t, "2027-01-01", snap.Fields.FechaRenovacion)

	pending, err := f.registry.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "settled job leaves the registry")
}

func TestCompleteExtractionNeedsReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-1", nil)
	_, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)

	result := confidentResult()
	result.FieldConfidence["insuredName"] = 0.40
	delete(result.FieldConfidence, "endDate")

	require.NoError(t, f.svc.CompleteExtraction(ctx, policyID, result))

	snap, err := f.svc.GetSnapshot(ctx, testUser, policyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNeedsReview, snap.Status)
	assert.Equal(t, []string{"endDate", "insuredName"}, snap.NeedsReviewFields)
	// Low-confidence values are kept, only flagged.
	assert.Equal(t, "Juan Perez", snap.Fields.InsuredName)
}

func TestCompleteExtractionFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-1", nil)
	_, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)

	require.NoError(t, f.svc.CompleteExtraction(ctx, policyID, &extraction.Result{
		State:        extraction.StateFailed,
		ErrorMessage: "unreadable scan",
	}))

	snap, err := f.svc.GetSnapshot(ctx, testUser, policyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, snap.Status)
	assert.Equal(t, "unreadable scan", snap.LastError)
}

func TestCompleteExtractionRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-1", nil)
	_, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)

	require.NoError(t, f.svc.CompleteExtraction(ctx, policyID, confidentResult()))

	// The loser of the callback/poller race gets a conflict, never a
	// double apply.
	err = f.svc.CompleteExtraction(ctx, policyID, confidentResult())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestCompleteExtractionByJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-99", nil)
	_, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)

	require.NoError(t, f.svc.CompleteExtractionByJob(ctx, "task-99", confidentResult()))

	snap, err := f.svc.GetSnapshot(ctx, testUser, policyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExtracted, snap.Status)

	err = f.svc.CompleteExtractionByJob(ctx, "task-unknown", confidentResult())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-1", nil)
	_, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)

	result := confidentResult()
	result.FieldConfidence["insuredName"] = 0.40
	require.NoError(t, f.svc.CompleteExtraction(ctx, policyID, result))

	snap, err := f.svc.Confirm(ctx, testUser, policyID, models.Fields{InsuredName: "Juan Perez Gomez"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, snap.Status)
	assert.Equal(t, "Juan Perez Gomez", snap.Fields.InsuredName)
	assert.Empty(t, snap.NeedsReviewFields)
	require.NotNil(t, snap.VerifiedAt)
	assert.Equal(t, testUser, snap.VerifiedBy)

	// Verification is final for the lifecycle.
	_, err = f.svc.Confirm(ctx, testUser, policyID, models.Fields{})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	t.Run("rejected before extraction", func(t *testing.T) {
		_, err := f.svc.Patch(ctx, testUser, policyID, models.Fields{PolicyNumber: "X"})
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
	})

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-1", nil)
	_, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)
	require.NoError(t, f.svc.CompleteExtraction(ctx, policyID, confidentResult()))

	t.Run("merges without touching status", func(t *testing.T) {
		snap, err := f.svc.Patch(ctx, testUser, policyID, models.Fields{Insurer: "AXA"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusExtracted, snap.Status)
		assert.Equal(t, "AXA", snap.Fields.Insurer)
		assert.Equal(t, "POL-123", snap.Fields.PolicyNumber)
	})
}

func TestOwnershipHidesForeignPolicies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	_, err := f.svc.GetSnapshot(ctx, "intruder", policyID)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound), "foreign policy must read as missing")

	_, err = f.svc.Patch(ctx, "intruder", policyID, models.Fields{PolicyNumber: "X"})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestLifecycleEventsPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-1", nil)
	_, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)
	require.NoError(t, f.svc.CompleteExtraction(ctx, policyID, confidentResult()))
	_, err = f.svc.Confirm(ctx, testUser, policyID, models.Fields{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CREATED>UPLOADED",
		"UPLOADED>PROCESSING",
		"PROCESSING>EXTRACTED",
		"EXTRACTED>VERIFIED",
	}, f.publisher.transitions())
}

func TestMarkRenewedAndLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	renewedID := f.extractedPolicy(t, "2026-06-01")
	lostID := f.extractedPolicy(t, "2026-06-02")

	snap, err := f.svc.MarkRenewed(ctx, testUser, renewedID, "POL-NEXT")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeRenewed, snap.RenewalOutcome)
	assert.Equal(t, "POL-NEXT", snap.RenewedPolicyID)
	require.NotNil(t, snap.RenewalOutcomeAt)

	_, err = f.svc.MarkRenewalLost(ctx, testUser, lostID, "bad-reason")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	snap, err = f.svc.MarkRenewalLost(ctx, testUser, lostID, "precio")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLost, snap.RenewalOutcome)
	assert.Equal(t, "PRECIO", snap.RenewalLostReason)
}

// extractedPolicy runs a policy through upload and extraction with the
// given renewal date.
func (f *fixture) extractedPolicy(t *testing.T, fechaRenovacion string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	policyID := f.createUploaded(t)

	f.extractor.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("task-"+policyID.String(), nil)
	_, err := f.svc.Ingest(ctx, testUser, policyID)
	require.NoError(t, err)

	result := confidentResult()
	result.Fields.FechaRenovacion = fechaRenovacion
	require.NoError(t, f.svc.CompleteExtraction(ctx, policyID, result))
	return policyID
}

func TestListRenewals(t *testing.T) {
	f := newFixture(t)
	f.svc.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	overdue := f.extractedPolicy(t, "2026-04-20")
	soon := f.extractedPolicy(t, "2026-05-20")
	later := f.extractedPolicy(t, "2026-06-20")
	distant := f.extractedPolicy(t, "2026-07-20")
	farOut := f.extractedPolicy(t, "2026-12-01")
	resolved := f.extractedPolicy(t, "2026-05-10")
	_, err := f.svc.MarkRenewed(ctx, testUser, resolved, "")
	require.NoError(t, err)

	ids := func(snaps []*Snapshot) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(snaps))
		for _, s := range snaps {
			out = append(out, s.ID)
		}
		return out
	}

	t.Run("default window covers all urgent buckets", func(t *testing.T) {
		snaps, err := f.svc.ListRenewals(ctx, testUser, "")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{overdue, soon, later, distant}, ids(snaps))
		assert.NotContains(t, ids(snaps), farOut)
		assert.NotContains(t, ids(snaps), resolved)
	})

	t.Run("window 30 excludes overdue", func(t *testing.T) {
		snaps, err := f.svc.ListRenewals(ctx, testUser, "30")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{soon}, ids(snaps))
	})

	t.Run("window 60 includes 30", func(t *testing.T) {
		snaps, err := f.svc.ListRenewals(ctx, testUser, "60")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{soon, later}, ids(snaps))
	})

	t.Run("window 90 includes 60 and 30", func(t *testing.T) {
		snaps, err := f.svc.ListRenewals(ctx, testUser, "90")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{soon, later, distant}, ids(snaps))
	})

	t.Run("window overdue", func(t *testing.T) {
		snaps, err := f.svc.ListRenewals(ctx, testUser, "overdue")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{overdue}, ids(snaps))
	})

	t.Run("unknown window rejected", func(t *testing.T) {
		_, err := f.svc.ListRenewals(ctx, testUser, "120")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
	})

	t.Run("buckets ride along on snapshots", func(t *testing.T) {
		snaps, err := f.svc.ListRenewals(ctx, testUser, "")
		require.NoError(t, err)
		assert.Equal(t, renewal.Overdue, snaps[0].RenewalStatus)
		assert.Equal(t, renewal.Days30, snaps[1].RenewalStatus)
	})
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	first := f.createUploaded(t)
	second := f.createUploaded(t)

	snaps, err := f.svc.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, second, snaps[0].ID)
	assert.Equal(t, first, snaps[1].ID)
}
