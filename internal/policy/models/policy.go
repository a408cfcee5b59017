package models

import (
	"time"

	"github.com/google/uuid"
)

// PolicyStatus is the lifecycle state of a policy document.
type PolicyStatus string

const (
	StatusCreated     PolicyStatus = "CREATED"
	StatusUploaded    PolicyStatus = "UPLOADED"
	StatusProcessing  PolicyStatus = "PROCESSING"
	StatusExtracted   PolicyStatus = "EXTRACTED"
	StatusNeedsReview PolicyStatus = "NEEDS_REVIEW"
	StatusVerified    PolicyStatus = "VERIFIED"
	StatusFailed      PolicyStatus = "FAILED"
)

// transitions is the full legality table. Lifecycle is one-directional
// except the FAILED → UPLOADED retry loop.
var transitions = map[PolicyStatus][]PolicyStatus{
	StatusCreated:     {StatusUploaded},
	StatusUploaded:    {StatusProcessing},
	StatusProcessing:  {StatusExtracted, StatusNeedsReview, StatusFailed},
	StatusNeedsReview: {StatusVerified},
	StatusExtracted:   {StatusVerified},
	StatusFailed:      {StatusUploaded},
	StatusVerified:    {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to PolicyStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Editable reports whether field patches are accepted in this status.
// Editing requires extraction to have produced a baseline first.
func (s PolicyStatus) Editable() bool {
	switch s {
	case StatusExtracted, StatusNeedsReview, StatusVerified:
		return true
	}
	return false
}

// Pending reports whether a client should keep polling for a change.
func (s PolicyStatus) Pending() bool {
	switch s {
	case StatusCreated, StatusUploaded, StatusProcessing:
		return true
	}
	return false
}

// RenewalOutcome records how an expiring policy was resolved by the agent.
type RenewalOutcome string

const (
	OutcomeRenewed RenewalOutcome = "RENEWED"
	OutcomeLost    RenewalOutcome = "LOST"
)

// RenewalLostReasons are the accepted values for mark-renewal-lost.
var RenewalLostReasons = map[string]bool{
	"PRECIO":        true,
	"COBERTURA":     true,
	"COMPETENCIA":   true,
	"SIN_RESPUESTA": true,
	"CAMBIO_PLANES": true,
	"OTRO":          true,
}

// Fields is the extracted document field set. All values optional until
// extraction completes; zero values are "absent" and are never persisted
// over an existing value by a merge.
type Fields struct {
	PolicyNumber    string  `json:"policyNumber,omitempty"`
	InsuredName     string  `json:"insuredName,omitempty"`
	Insurer         string  `json:"insurer,omitempty"`
	PolicyType      string  `json:"policyType,omitempty"`
	StartDate       string  `json:"startDate,omitempty"`
	EndDate         string  `json:"endDate,omitempty"`
	PremiumTotal    float64 `json:"premiumTotal,omitempty"`
	Currency        string  `json:"currency,omitempty"`
	RFC             string  `json:"rfc,omitempty"`
	FechaRenovacion string  `json:"fechaRenovacion,omitempty"`
}

// Merge overlays only the provided (non-zero) fields onto f.
func (f Fields) Merge(patch Fields) Fields {
	if patch.PolicyNumber != "" {
		f.PolicyNumber = patch.PolicyNumber
	}
	if patch.InsuredName != "" {
		f.InsuredName = patch.InsuredName
	}
	if patch.Insurer != "" {
		f.Insurer = patch.Insurer
	}
	if patch.PolicyType != "" {
		f.PolicyType = patch.PolicyType
	}
	if patch.StartDate != "" {
		f.StartDate = patch.StartDate
	}
	if patch.EndDate != "" {
		f.EndDate = patch.EndDate
	}
	if patch.PremiumTotal != 0 {
		f.PremiumTotal = patch.PremiumTotal
	}
	if patch.Currency != "" {
		f.Currency = patch.Currency
	}
	if patch.RFC != "" {
		f.RFC = patch.RFC
	}
	if patch.FechaRenovacion != "" {
		f.FechaRenovacion = patch.FechaRenovacion
	}
	return f
}

// Policy is the central entity of the ingestion and renewal engine.
type Policy struct {
	ID     uuid.UUID    `json:"policyId"`
	UserID string       `json:"userId"`
	Status PolicyStatus `json:"status"`

	SourceFileName string `json:"sourceFileName,omitempty"`
	ContentType    string `json:"contentType,omitempty"`
	FileSizeBytes  int64  `json:"fileSizeBytes,omitempty"`
	S3Bucket       string `json:"s3Bucket,omitempty"`
	S3KeyOriginal  string `json:"s3KeyOriginal,omitempty"`

	ExtractionJobID string `json:"extractionJobId,omitempty"`

	Fields          Fields             `json:"fields"`
	FieldConfidence map[string]float64 `json:"fieldConfidence,omitempty"`
	// NeedsReviewFields is captured at the transition that produced
	// NEEDS_REVIEW and is not recomputed as fields are edited.
	NeedsReviewFields []string `json:"needsReviewFields,omitempty"`

	LastError  string `json:"lastError,omitempty"`
	RetryCount int    `json:"retryCount"`

	RenewalOutcome    RenewalOutcome `json:"renewalOutcome,omitempty"`
	RenewalLostReason string         `json:"renewalLostReason,omitempty"`
	RenewalOutcomeAt  *time.Time     `json:"renewalOutcomeAt,omitempty"`
	RenewedPolicyID   string         `json:"renewedPolicyId,omitempty"`

	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy string     `json:"verifiedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy so store snapshots never alias caller state.
func (p *Policy) Clone() *Policy {
	cp := *p
	if p.FieldConfidence != nil {
		cp.FieldConfidence = make(map[string]float64, len(p.FieldConfidence))
		for k, v := range p.FieldConfidence {
			cp.FieldConfidence[k] = v
		}
	}
	if p.NeedsReviewFields != nil {
		cp.NeedsReviewFields = append([]string(nil), p.NeedsReviewFields...)
	}
	if p.RenewalOutcomeAt != nil {
		t := *p.RenewalOutcomeAt
		cp.RenewalOutcomeAt = &t
	}
	if p.VerifiedAt != nil {
		t := *p.VerifiedAt
		cp.VerifiedAt = &t
	}
	return &cp
}
