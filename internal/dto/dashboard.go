package dto

import (
	"time"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/reconcile"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
)

// StatCard is a single headline figure on a dashboard.
type StatCard struct {
	Key   string          `json:"key"`
	Label string          `json:"label"`
	Value float64         `json:"value"`
	Unit  string          `json:"unit,omitempty"`
	Trend reconcile.Trend `json:"trend,omitempty"`
}

// DashboardMeta reports how the collections behind a dashboard were loaded.
type DashboardMeta struct {
	Collections []snapshot.CollectionState `json:"collections"`
	Banners     []string                   `json:"banners,omitempty"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}

// LoadStates returns the per-collection load states.
func (m DashboardMeta) LoadStates() []snapshot.CollectionState {
	return m.Collections
}

// SuperAdminDashboard is the institution-wide overview.
type SuperAdminDashboard struct {
	DashboardMeta
	Cards            []StatCard                `json:"cards"`
	UsersByRole      map[models.UserRole]int   `json:"usersByRole"`
	ActiveUsers      int                       `json:"activeUsers"`
	InactiveUsers    int                       `json:"inactiveUsers"`
	ActiveRate       float64                   `json:"activeRate"`
	Totals           map[models.Collection]int `json:"totals"`
	AlertsByPriority map[models.Priority]int   `json:"alertsByPriority"`
	DroppedRecords   int                       `json:"droppedRecords"`
}

// AcademicHeadDashboard covers the academic offer.
type AcademicHeadDashboard struct {
	DashboardMeta
	Cards            []StatCard              `json:"cards"`
	Careers          []reconcile.CareerView  `json:"careers"`
	Subjects         []reconcile.SubjectView `json:"subjects"`
	Groups           []reconcile.GroupView   `json:"groups"`
	UnassignedGroups int                     `json:"unassignedGroups"`
	AverageOccupancy float64                 `json:"averageOccupancy"`
}

// CareerGroups counts groups per career.
type CareerGroups struct {
	CareerID   string `json:"careerId"`
	CareerName string `json:"careerName"`
	Groups     int    `json:"groups"`
}

// SubDirectorDashboard tracks institutional performance.
type SubDirectorDashboard struct {
	DashboardMeta
	Cards           []StatCard      `json:"cards"`
	ApprovalRate    float64         `json:"approvalRate"`
	ApprovalTrend   reconcile.Trend `json:"approvalTrend"`
	AlertsTrend     reconcile.Trend `json:"alertsTrend"`
	GroupsPerCareer []CareerGroups  `json:"groupsPerCareer"`
	TeacherCoverage float64         `json:"teacherCoverage"`
}

// TeacherDashboard is scoped to the groups taught by one teacher.
type TeacherDashboard struct {
	DashboardMeta
	TeacherID      string                  `json:"teacherId"`
	TeacherName    string                  `json:"teacherName"`
	Cards          []StatCard              `json:"cards"`
	Groups         []reconcile.GroupView   `json:"groups"`
	Subjects       []reconcile.SubjectView `json:"subjects"`
	TotalStudents  int                     `json:"totalStudents"`
	PendingReports int                     `json:"pendingReports"`
	Alerts         []models.Alert          `json:"alerts"`
}

// PsychopedagogicalDashboard follows student alerts and tutoring.
type PsychopedagogicalDashboard struct {
	DashboardMeta
	Cards                 []StatCard              `json:"cards"`
	AlertsByPriority      map[models.Priority]int `json:"alertsByPriority"`
	OpenCriticalAlerts    []models.Alert          `json:"openCriticalAlerts"`
	AlertsTrend           reconcile.Trend         `json:"alertsTrend"`
	TutoriaCompletionRate float64                 `json:"tutoriaCompletionRate"`
}

// TutorDashboard is scoped to the sessions of one tutor.
type TutorDashboard struct {
	DashboardMeta
	TutorID          string                `json:"tutorId"`
	Cards            []StatCard            `json:"cards"`
	Tutorias         []models.Tutoria      `json:"tutorias"`
	Upcoming         []models.Tutoria      `json:"upcoming"`
	CompletionRate   float64               `json:"completionRate"`
	Capacitaciones   []models.Capacitacion `json:"capacitaciones"`
	TrainingsPending int                   `json:"trainingsPending"`
}

// SystemMetrics is a lightweight view of the process metrics.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	UpstreamFetches          uint64    `json:"upstreamFetches"`
	AverageUpstreamMs        float64   `json:"averageUpstreamMs"`
	// UpstreamFailures counts unsuccessful fetches per collection.
	UpstreamFailures map[string]uint64 `json:"upstreamFailures,omitempty"`
	DroppedRecords           uint64    `json:"droppedRecords"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
