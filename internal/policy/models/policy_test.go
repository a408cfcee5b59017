package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to PolicyStatus }{
		{StatusCreated, StatusUploaded},
		{StatusUploaded, StatusProcessing},
		{StatusProcessing, StatusExtracted},
		{StatusProcessing, StatusNeedsReview},
		{StatusProcessing, StatusFailed},
		{StatusNeedsReview, StatusVerified},
		{StatusExtracted, StatusVerified},
		{StatusFailed, StatusUploaded},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s should be legal", tt.from, tt.to)
	}

	denied := []struct{ from, to PolicyStatus }{
		{StatusCreated, StatusProcessing},
		{StatusCreated, StatusExtracted},
		{StatusUploaded, StatusExtracted},
		{StatusProcessing, StatusVerified},
		{StatusExtracted, StatusProcessing},
		{StatusVerified, StatusUploaded},
		{StatusVerified, StatusProcessing},
		{StatusNeedsReview, StatusProcessing},
		{StatusFailed, StatusProcessing},
		{StatusExtracted, StatusNeedsReview},
	}
	for _, tt := range denied {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s should be illegal", tt.from, tt.to)
	}
}

func TestVerifiedIsTerminalForStatus(t *testing.T) {
	for _, to := range []PolicyStatus{StatusCreated, StatusUploaded, StatusProcessing, StatusExtracted, StatusNeedsReview, StatusFailed} {
		assert.False(t, CanTransition(StatusVerified, to))
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusExtracted.Editable())
	assert.True(t, StatusNeedsReview.Editable())
	assert.True(t, StatusVerified.Editable())
	assert.False(t, StatusProcessing.Editable())
	assert.False(t, StatusFailed.Editable())

	assert.True(t, StatusCreated.Pending())
	assert.True(t, StatusProcessing.Pending())
	assert.False(t, StatusExtracted.Pending())
}

func TestFieldsMerge(t *testing.T) {
	base := Fields{
		PolicyNumber: "POL-001",
		InsuredName:  "Maria Lopez",
		Insurer:      "GNP",
		StartDate:    "2025-07-01",
		PremiumTotal: 12000,
	}

	t.Run("patch overlays non-zero values only", func(t *testing.T) {
		merged := base.Merge(Fields{InsuredName: "Maria Lopez Garcia", RFC: "LOGM850101AAA"})
		assert.Equal(t, "POL-001", merged.PolicyNumber)
		assert.Equal(t, "Maria Lopez Garcia", merged.InsuredName)
		assert.Equal(t, "LOGM850101AAA", merged.RFC)
		assert.Equal(t, float64(12000), merged.PremiumTotal)
	})

	t.Run("empty patch is identity", func(t *testing.T) {
		assert.Equal(t, base, base.Merge(Fields{}))
	})
}

func TestCloneIsDeep(t *testing.T) {
	p := &Policy{
		Status:            StatusNeedsReview,
		FieldConfidence:   map[string]float64{"policyNumber": 0.9},
		NeedsReviewFields: []string{"insuredName"},
	}
	clone := p.Clone()
	clone.FieldConfidence["policyNumber"] = 0.1
	clone.NeedsReviewFields[0] = "rfc"

	assert.Equal(t, 0.9, p.FieldConfidence["policyNumber"])
	assert.Equal(t, "insuredName", p.NeedsReviewFields[0])
}
