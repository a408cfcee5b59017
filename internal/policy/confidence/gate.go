// Package confidence implements the review gate applied to extraction
// results. Pure classification; the caller persists the outcome.
package confidence

import "sort"

// Result is the gate's verdict for one extraction result.
type Result struct {
	NeedsReview bool
	// FlaggedFields is the exact set of field names that forced review,
	// sorted for deterministic persistence.
	FlaggedFields []string
}

// Evaluate flags every required field whose confidence is strictly below
// threshold or that is missing from the result entirely, plus any fields
// the extraction service itself marked as uncertain. Review is needed
// iff at least one field is flagged.
func Evaluate(fieldConfidence map[string]float64, present map[string]bool, extractorFlagged []string, required []string, threshold float64) Result {
	flagged := make(map[string]bool)
	for _, field := range required {
		if !present[field] {
			flagged[field] = true
			continue
		}
		if conf, ok := fieldConfidence[field]; ok && conf < threshold {
			flagged[field] = true
		}
	}
	for _, field := range extractorFlagged {
		flagged[field] = true
	}

	if len(flagged) == 0 {
		return Result{}
	}
	names := make([]string, 0, len(flagged))
	for field := range flagged {
		names = append(names, field)
	}
	sort.Strings(names)
	return Result{NeedsReview: true, FlaggedFields: names}
}
