package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

func TestPercentageStaysInRange(t *testing.T) {
	for total := 0; total <= 12; total++ {
		for part := 0; part <= total; part++ {
			pct := Percentage(part, total)
			assert.GreaterOrEqual(t, pct, 0.0)
			assert.LessOrEqual(t, pct, 100.0)
		}
	}
	assert.Equal(t, 33.3, Percentage(1, 3))
	assert.Equal(t, 100.0, Percentage(5, 3))
	assert.Equal(t, 0.0, Percentage(-1, 3))
	assert.Equal(t, 0.0, Percentage(3, 0))
}

func TestTrendOf(t *testing.T) {
	assert.Equal(t, TrendUp, TrendOf(5, 3))
	assert.Equal(t, TrendDown, TrendOf(2, 3))
	assert.Equal(t, TrendStable, TrendOf(3, 3))
}

func TestCountAndAverage(t *testing.T) {
	users := []models.User{{Role: models.RoleDocente}, {Role: models.RoleDocente}, {Role: models.RoleTutor}}
	assert.Equal(t, map[models.UserRole]int{models.RoleDocente: 2, models.RoleTutor: 1}, RoleBreakdown(users))
	assert.Equal(t, 1, CountWhere(users, func(u models.User) bool { return u.Role == models.RoleTutor }))

	groups := []models.Group{{Capacity: 30}, {Capacity: 25}}
	assert.Equal(t, 27.5, Average(groups, func(g models.Group) float64 { return float64(g.Capacity) }))
	assert.Equal(t, 0.0, Average([]models.Group{}, func(g models.Group) float64 { return 1 }))
}

func TestPriorityBreakdownListsEveryPriority(t *testing.T) {
	got := PriorityBreakdown([]models.Alert{{Priority: models.PriorityHigh}, {Priority: models.PriorityHigh}})
	assert.Equal(t, map[models.Priority]int{
		models.PriorityLow:      0,
		models.PriorityMedium:   0,
		models.PriorityHigh:     2,
		models.PriorityCritical: 0,
	}, got)
}

func TestApprovalAndCompletionRates(t *testing.T) {
	pass, fail := 90.0, 50.0
	reports := []models.Report{
		{Status: models.StatusApproved},
		{Status: models.StatusPending, Grade: &pass},
		{Status: models.StatusRejected, Grade: &pass},
		{Status: models.StatusPending, Grade: &fail},
	}
	assert.Equal(t, 50.0, ApprovalRate(reports))
	assert.Equal(t, 0.0, ApprovalRate(nil))

	tutorias := []models.Tutoria{{Status: models.StatusCompleted}, {Status: models.StatusScheduled}}
	assert.Equal(t, 50.0, CompletionRate(tutorias, func(t models.Tutoria) string { return t.Status }))
}

func TestPeriodsAndWindows(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	current, previous := Periods(now, 30*24*time.Hour)
	assert.Equal(t, previous.To, current.From)

	recent := now.Add(-24 * time.Hour)
	older := now.Add(-40 * 24 * time.Hour)
	alerts := []models.Alert{{ID: "a1", CreatedAt: &recent}, {ID: "a2", CreatedAt: &older}, {ID: "a3"}}
	at := func(a models.Alert) *time.Time { return a.CreatedAt }

	assert.Len(t, InWindow(alerts, current, at), 1)
	assert.Len(t, InWindow(alerts, previous, at), 1)
	assert.False(t, current.Contains(now))
}
