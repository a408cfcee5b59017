// Package extraction adapts the external OCR/structured-extraction
// service into the engine's vocabulary. The service is a black box that
// accepts a document reference and later produces field values with
// per-field confidence scores, or a failure.
package extraction

import (
	"context"
	"strconv"
	"strings"

	"polizalab/internal/policy/models"
)

//go:generate mockgen -source=client.go -destination=mock/client.go -package=mock

// State is the normalized lifecycle of a submitted extraction job.
type State string

const (
	StatePending   State = "PENDING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
)

// Submission identifies the document to extract. The engine never reads
// the bytes itself; it hands the object reference to the service.
type Submission struct {
	PolicyID    string
	Bucket      string
	Key         string
	ContentType string
}

// Result is the normalized outcome of a job. Exactly one of the three
// shapes applies: pending (State only), completed (fields populated),
// or failed (ErrorMessage set).
type Result struct {
	State           State
	Fields          models.Fields
	FieldConfidence map[string]float64
	// FlaggedFields are fields the service itself marked as uncertain,
	// independent of the engine's confidence threshold.
	FlaggedFields []string
	ErrorMessage  string
}

// Client submits extraction jobs and reports their results. Submit does
// not retry internally beyond transient transport errors; a failed job
// is only re-run through an explicit re-ingest.
type Client interface {
	Submit(ctx context.Context, sub Submission) (jobID string, err error)
	FetchResult(ctx context.Context, jobID string) (*Result, error)
}

// fieldValue is one entry of the service's field map on the wire.
type fieldValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// decodeFields maps the service's name-keyed field map onto the typed
// field set, collecting confidences and which fields arrived at all.
func decodeFields(raw map[string]fieldValue) (models.Fields, map[string]float64, map[string]bool) {
	var f models.Fields
	conf := make(map[string]float64, len(raw))
	present := make(map[string]bool, len(raw))
	for name, fv := range raw {
		value := strings.TrimSpace(fv.Value)
		if value == "" {
			continue
		}
		switch name {
		case "policyNumber":
			f.PolicyNumber = value
		case "insuredName":
			f.InsuredName = value
		case "insurer":
			f.Insurer = value
		case "policyType":
			f.PolicyType = value
		case "startDate":
			f.StartDate = value
		case "endDate":
			f.EndDate = value
		case "premiumTotal":
			f.PremiumTotal = parseAmount(value)
		case "currency":
			f.Currency = value
		case "rfc":
			f.RFC = value
		case "fechaRenovacion":
			f.FechaRenovacion = value
		default:
			continue
		}
		conf[name] = fv.Confidence
		present[name] = true
	}
	return f, conf, present
}

// parseAmount reads amounts like "12,345.67".
func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}
