// Package renewal derives renewal dates and classifies their urgency.
// Everything here is pure: callers pass "today" explicitly so the same
// inputs always classify the same way.
package renewal

import (
	"time"

	"polizalab/internal/policy/models"
)

// Bucket is the discrete urgency classification for an upcoming renewal.
type Bucket string

const (
	Overdue   Bucket = "OVERDUE"
	Days30    Bucket = "30_DAYS"
	Days60    Bucket = "60_DAYS"
	Days90    Bucket = "90_DAYS"
	NotUrgent Bucket = "NOT_URGENT"
)

// Urgent reports whether the bucket belongs in renewals listings.
func (b Bucket) Urgent() bool {
	switch b {
	case Overdue, Days30, Days60, Days90:
		return true
	}
	return false
}

// permanentLifeType never expires, so it has no renewal date.
const permanentLifeType = "Vida permanente"

// Date returns the derived renewal date (startDate plus twelve months)
// in ISO form, or "" when no date can be derived.
func Date(policyType, startDate string) string {
	if policyType == "" || startDate == "" {
		return ""
	}
	if policyType == permanentLifeType {
		return ""
	}
	d, err := parseDay(startDate)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 12, 0).Format("2006-01-02")
}

// EffectiveDate picks the date the classifier should run against:
// the explicit fechaRenovacion when present, then the derived renewal
// date, then the policy end date as a last resort.
func EffectiveDate(f models.Fields) string {
	if f.FechaRenovacion != "" {
		return f.FechaRenovacion
	}
	if d := Date(f.PolicyType, f.StartDate); d != "" {
		return d
	}
	return f.EndDate
}

// Classify buckets a renewal date relative to now. Boundaries are
// inclusive on the upper edge: exactly 30 days out is 30_DAYS, exactly
// 91 is NOT_URGENT, one day past due is OVERDUE. An empty or unparsable
// date is NOT_URGENT, which keeps it out of renewals listings.
func Classify(renewalDate string, now time.Time) Bucket {
	if renewalDate == "" {
		return NotUrgent
	}
	d, err := parseDay(renewalDate)
	if err != nil {
		return NotUrgent
	}
	days := daysBetween(truncateDay(now), d)
	switch {
	case days < 0:
		return Overdue
	case days <= 30:
		return Days30
	case days <= 60:
		return Days60
	case days <= 90:
		return Days90
	default:
		return NotUrgent
	}
}

// parseDay reads the date portion of an ISO timestamp or plain date.
func parseDay(s string) (time.Time, error) {
	if len(s) > 10 {
		s = s[:10]
	}
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}
