package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"polizalab/internal/policy/models"
	"polizalab/pkg/platform/sentinel"
)

// Schema creates the policies table. Applied on startup; idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS policies (
    id                  UUID PRIMARY KEY,
    user_id             TEXT NOT NULL,
    status              TEXT NOT NULL,
    source_file_name    TEXT NOT NULL DEFAULT '',
    content_type        TEXT NOT NULL DEFAULT '',
    file_size_bytes     BIGINT NOT NULL DEFAULT 0,
    s3_bucket           TEXT NOT NULL DEFAULT '',
    s3_key_original     TEXT NOT NULL DEFAULT '',
    extraction_job_id   TEXT NOT NULL DEFAULT '',
    fields              JSONB NOT NULL DEFAULT '{}',
    field_confidence    JSONB NOT NULL DEFAULT '{}',
    needs_review_fields JSONB NOT NULL DEFAULT '[]',
    last_error          TEXT NOT NULL DEFAULT '',
    retry_count         INT NOT NULL DEFAULT 0,
    renewal_outcome     TEXT NOT NULL DEFAULT '',
    renewal_lost_reason TEXT NOT NULL DEFAULT '',
    renewal_outcome_at  TIMESTAMPTZ,
    renewed_policy_id   TEXT NOT NULL DEFAULT '',
    verified_at         TIMESTAMPTZ,
    verified_by         TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS policies_user_created_idx ON policies (user_id, created_at DESC);
`

const policyColumns = `id, user_id, status, source_file_name, content_type, file_size_bytes,
    s3_bucket, s3_key_original, extraction_job_id, fields, field_confidence,
    needs_review_fields, last_error, retry_count, renewal_outcome, renewal_lost_reason,
    renewal_outcome_at, renewed_policy_id, verified_at, verified_by, created_at, updated_at`

// Postgres persists policies in PostgreSQL. Update runs the mutation
// inside a transaction holding a row lock, which serializes writers per
// policy while leaving reads and other policies untouched.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema applies the table definition.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure policies schema: %w", err)
	}
	return nil
}

func (s *Postgres) Create(ctx context.Context, policy *models.Policy) error {
	fields, confidence, review, err := marshalJSON(policy)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO policies (`+policyColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		policy.ID, policy.UserID, policy.Status, policy.SourceFileName, policy.ContentType,
		policy.FileSizeBytes, policy.S3Bucket, policy.S3KeyOriginal, policy.ExtractionJobID,
		fields, confidence, review, policy.LastError, policy.RetryCount,
		policy.RenewalOutcome, policy.RenewalLostReason, policy.RenewalOutcomeAt,
		policy.RenewedPolicyID, policy.VerifiedAt, policy.VerifiedBy,
		policy.CreatedAt, policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = $1`, id)
	policy, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get policy: %w", err)
	}
	return policy, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID string) ([]*models.Policy, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+policyColumns+` FROM policies
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []*models.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		out = append(out, policy)
	}
	return out, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, id uuid.UUID, mutate func(*models.Policy) error) (*models.Policy, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = $1 FOR UPDATE`, id)
	policy, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock policy: %w", err)
	}

	if err := mutate(policy); err != nil {
		return nil, err
	}

	fields, confidence, review, err := marshalJSON(policy)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
        UPDATE policies SET
            status = $2, source_file_name = $3, content_type = $4, file_size_bytes = $5,
            s3_bucket = $6, s3_key_original = $7, extraction_job_id = $8,
            fields = $9, field_confidence = $10, needs_review_fields = $11,
            last_error = $12, retry_count = $13, renewal_outcome = $14,
            renewal_lost_reason = $15, renewal_outcome_at = $16, renewed_policy_id = $17,
            verified_at = $18, verified_by = $19, updated_at = $20
        WHERE id = $1`,
		policy.ID, policy.Status, policy.SourceFileName, policy.ContentType, policy.FileSizeBytes,
		policy.S3Bucket, policy.S3KeyOriginal, policy.ExtractionJobID,
		fields, confidence, review, policy.LastError, policy.RetryCount,
		policy.RenewalOutcome, policy.RenewalLostReason, policy.RenewalOutcomeAt,
		policy.RenewedPolicyID, policy.VerifiedAt, policy.VerifiedBy, policy.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update policy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return policy, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*models.Policy, error) {
	var (
		policy     models.Policy
		fields     []byte
		confidence []byte
		review     []byte
	)
	err := row.Scan(
		&policy.ID, &policy.UserID, &policy.Status, &policy.SourceFileName, &policy.ContentType,
		&policy.FileSizeBytes, &policy.S3Bucket, &policy.S3KeyOriginal, &policy.ExtractionJobID,
		&fields, &confidence, &review, &policy.LastError, &policy.RetryCount,
		&policy.RenewalOutcome, &policy.RenewalLostReason, &policy.RenewalOutcomeAt,
		&policy.RenewedPolicyID, &policy.VerifiedAt, &policy.VerifiedBy,
		&policy.CreatedAt, &policy.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fields, &policy.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(confidence, &policy.FieldConfidence); err != nil {
		return nil, fmt.Errorf("decode field confidence: %w", err)
	}
	if err := json.Unmarshal(review, &policy.NeedsReviewFields); err != nil {
		return nil, fmt.Errorf("decode review fields: %w", err)
	}
	return &policy, nil
}

func marshalJSON(policy *models.Policy) (fields, confidence, review []byte, err error) {
	fields, err = json.Marshal(policy.Fields)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode fields: %w", err)
	}
	conf := policy.FieldConfidence
	if conf == nil {
		conf = map[string]float64{}
	}
	confidence, err = json.Marshal(conf)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode field confidence: %w", err)
	}
	rev := policy.NeedsReviewFields
	if rev == nil {
		rev = []string{}
	}
	review, err = json.Marshal(rev)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode review fields: %w", err)
	}
	return fields, confidence, review, nil
}
