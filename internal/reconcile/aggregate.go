package reconcile

import (
	"math"
	"time"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

// Trend is the direction of a value between two periods.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// PassingGrade is the minimum grade counted as approved when a report has no
// explicit approval status.
const PassingGrade = 70.0

// Percentage returns part/total expressed in [0,100], rounded to one decimal.
func Percentage(part, total int) float64 {
	if total <= 0 || part <= 0 {
		return 0
	}
	pct := float64(part) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*10) / 10
}

// TrendOf compares current against previous. Ties are stable.
func TrendOf(current, previous float64) Trend {
	switch {
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	default:
		return TrendStable
	}
}

// CountBy counts records per key.
func CountBy[T any, K comparable](records []T, key func(T) K) map[K]int {
	counts := make(map[K]int)
	for _, r := range records {
		counts[key(r)]++
	}
	return counts
}

// CountWhere counts the records matching pred.
func CountWhere[T any](records []T, pred func(T) bool) int {
	n := 0
	for _, r := range records {
		if pred(r) {
			n++
		}
	}
	return n
}

// Average returns the mean of value over records, or 0 for an empty slice.
func Average[T any](records []T, value func(T) float64) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range records {
		sum += value(r)
	}
	return math.Round(sum/float64(len(records))*10) / 10
}

// PriorityBreakdown counts alerts per priority. Every priority is present.
func PriorityBreakdown(alerts []models.Alert) map[models.Priority]int {
	out := make(map[models.Priority]int, len(models.Priorities))
	for _, p := range models.Priorities {
		out[p] = 0
	}
	for _, a := range alerts {
		out[a.Priority]++
	}
	return out
}

// RoleBreakdown counts users per internal role.
func RoleBreakdown(users []models.User) map[models.UserRole]int {
	return CountBy(users, func(u models.User) models.UserRole { return u.Role })
}

// ReportApproved reports whether a report counts as approved: an approved
// status, or a passing grade on a report that was not rejected.
func ReportApproved(r models.Report) bool {
	switch r.Status {
	case models.StatusApproved:
		return true
	case models.StatusRejected:
		return false
	}
	return r.Grade != nil && *r.Grade >= PassingGrade
}

// ApprovalRate is the share of approved reports among the given reports.
func ApprovalRate(reports []models.Report) float64 {
	return Percentage(CountWhere(reports, ReportApproved), len(reports))
}

// CompletionRate is the share of records whose status is completed.
func CompletionRate[T any](records []T, status func(T) string) float64 {
	done := CountWhere(records, func(r T) bool { return status(r) == models.StatusCompleted })
	return Percentage(done, len(records))
}

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Periods splits the span ending at now into the current window and the one
// immediately before it.
func Periods(now time.Time, span time.Duration) (current, previous Window) {
	current = Window{From: now.Add(-span), To: now}
	previous = Window{From: now.Add(-2 * span), To: current.From}
	return current, previous
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// InWindow returns the records whose timestamp falls inside w. Records without
// a timestamp are skipped.
func InWindow[T any](records []T, w Window, at func(T) *time.Time) []T {
	out := make([]T, 0)
	for _, r := range records {
		if ts := at(r); ts != nil && w.Contains(*ts) {
			out = append(out, r)
		}
	}
	return out
}
