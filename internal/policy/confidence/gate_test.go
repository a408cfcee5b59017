package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var requiredFields = []string{"policyNumber", "insuredName", "startDate", "endDate"}

func allPresent(conf map[string]float64) map[string]bool {
	present := make(map[string]bool, len(conf))
	for field := range conf {
		present[field] = true
	}
	return present
}

func TestEvaluateAllConfident(t *testing.T) {
	conf := map[string]float64{
		"policyNumber": 0.99,
		"insuredName":  0.95,
		"startDate":    0.90,
		"endDate":      0.88,
	}
	result := Evaluate(conf, allPresent(conf), nil, requiredFields, 0.75)
	assert.False(t, result.NeedsReview)
	assert.Empty(t, result.FlaggedFields)
}

func TestEvaluateLowConfidenceField(t *testing.T) {
	conf := map[string]float64{
		"policyNumber": 0.9,
		"insuredName":  0.4,
		"startDate":    0.9,
		"endDate":      0.9,
	}
	result := Evaluate(conf, allPresent(conf), nil, requiredFields, 0.5)
	assert.True(t, result.NeedsReview)
	assert.Equal(t, []string{"insuredName"}, result.FlaggedFields)
}

func TestEvaluateThresholdIsStrict(t *testing.T) {
	conf := map[string]float64{
		"policyNumber": 0.75,
		"insuredName":  0.75,
		"startDate":    0.75,
		"endDate":      0.75,
	}
	// Confidence exactly at threshold passes.
	result := Evaluate(conf, allPresent(conf), nil, requiredFields, 0.75)
	assert.False(t, result.NeedsReview)
}

func TestEvaluateMissingRequiredField(t *testing.T) {
	conf := map[string]float64{
		"policyNumber": 0.9,
		"insuredName":  0.9,
		"startDate":    0.9,
	}
	result := Evaluate(conf, allPresent(conf), nil, requiredFields, 0.75)
	assert.True(t, result.NeedsReview)
	assert.Equal(t, []string{"endDate"}, result.FlaggedFields)
}

func TestEvaluateExtractorFlagsUnion(t *testing.T) {
	conf := map[string]float64{
		"policyNumber": 0.9,
		"insuredName":  0.4,
		"startDate":    0.9,
		"endDate":      0.9,
		"rfc":          0.9,
	}
	result := Evaluate(conf, allPresent(conf), []string{"rfc", "insuredName"}, requiredFields, 0.75)
	assert.True(t, result.NeedsReview)
	assert.Equal(t, []string{"insuredName", "rfc"}, result.FlaggedFields)
}

func TestEvaluateOptionalFieldsNeverGated(t *testing.T) {
	conf := map[string]float64{
		"policyNumber": 0.9,
		"insuredName":  0.9,
		"startDate":    0.9,
		"endDate":      0.9,
		"rfc":          0.1,
	}
	result := Evaluate(conf, allPresent(conf), nil, requiredFields, 0.75)
	assert.False(t, result.NeedsReview)
}
