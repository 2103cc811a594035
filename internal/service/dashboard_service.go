package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/dto"
	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/reconcile"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
)

type snapshotLoader interface {
	Load(ctx context.Context, collections ...models.Collection) *snapshot.Snapshot
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
	// TrendWindow is the length of the current and previous periods compared by trends.
	TrendWindow time.Duration
}

// DashboardService composes the per-role dashboards from a snapshot.
type DashboardService struct {
	snapshots snapshotLoader
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Snapshots snapshotLoader
	Cache     *CacheService
	Logger    *zap.Logger
	Config    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = 30 * 24 * time.Hour
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		snapshots: params.Snapshots,
		cache:     params.Cache,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// SuperAdmin returns the institution-wide overview and whether it came from cache.
func (s *DashboardService) SuperAdmin(ctx context.Context) (*dto.SuperAdminDashboard, bool, error) {
	return cachedDashboard(ctx, s, DashboardKey(models.DashboardSuperAdmin, ""), func() (*dto.SuperAdminDashboard, bool) {
		snap := s.snapshots.Load(ctx, models.AllCollections...)
		users := snap.Users()
		active := reconcile.CountWhere(users, func(u models.User) bool { return u.Active })
		alerts := snap.Alerts()
		openAlerts := reconcile.CountWhere(alerts, func(a models.Alert) bool { return a.Status == models.StatusActive })

		out := &dto.SuperAdminDashboard{
			DashboardMeta:    s.meta(snap),
			UsersByRole:      reconcile.RoleBreakdown(users),
			ActiveUsers:      active,
			InactiveUsers:    len(users) - active,
			ActiveRate:       reconcile.Percentage(active, len(users)),
			AlertsByPriority: reconcile.PriorityBreakdown(alerts),
			DroppedRecords:   snap.Dropped(),
			Totals: map[models.Collection]int{
				models.CollectionUsers:          len(users),
				models.CollectionCareers:        len(snap.Careers()),
				models.CollectionSubjects:       len(snap.Subjects()),
				models.CollectionGroups:         len(snap.Groups()),
				models.CollectionAlerts:         len(alerts),
				models.CollectionTutorias:       len(snap.Tutorias()),
				models.CollectionCapacitaciones: len(snap.Capacitaciones()),
				models.CollectionReports:        len(snap.Reports()),
			},
		}
		out.Cards = []dto.StatCard{
			{Key: "users", Label: "Usuarios", Value: float64(len(users))},
			{Key: "active_rate", Label: "Usuarios activos", Value: out.ActiveRate, Unit: "%"},
			{Key: "groups", Label: "Grupos", Value: float64(len(snap.Groups()))},
			{Key: "open_alerts", Label: "Alertas abiertas", Value: float64(openAlerts)},
		}
		return out, complete(snap)
	})
}

// AcademicHead returns the academic offer with resolved references.
func (s *DashboardService) AcademicHead(ctx context.Context) (*dto.AcademicHeadDashboard, bool, error) {
	return cachedDashboard(ctx, s, DashboardKey(models.DashboardAcademicHead, ""), func() (*dto.AcademicHeadDashboard, bool) {
		snap := s.snapshots.Load(ctx, models.CollectionCareers, models.CollectionSubjects, models.CollectionGroups, models.CollectionUsers)
		careers, subjects, groups := snap.Careers(), snap.Subjects(), snap.Groups()

		groupViews := reconcile.ReconcileGroups(groups, careers, subjects, snap.Users())
		reconcile.SortGroupViews(groupViews)
		unassigned := reconcile.CountWhere(groups, func(g models.Group) bool { return g.TeacherID == "" })
		occupancy := reconcile.Average(groupViews, func(v reconcile.GroupView) float64 { return v.Occupancy })

		out := &dto.AcademicHeadDashboard{
			DashboardMeta:    s.meta(snap),
			Careers:          reconcile.ReconcileCareers(careers, subjects, groups),
			Subjects:         reconcile.ReconcileSubjects(subjects, careers, groups),
			Groups:           groupViews,
			UnassignedGroups: unassigned,
			AverageOccupancy: occupancy,
		}
		out.Cards = []dto.StatCard{
			{Key: "careers", Label: "Carreras", Value: float64(len(careers))},
			{Key: "subjects", Label: "Materias", Value: float64(len(subjects))},
			{Key: "groups", Label: "Grupos", Value: float64(len(groups))},
			{Key: "unassigned_groups", Label: "Grupos sin docente", Value: float64(unassigned)},
			{Key: "average_occupancy", Label: "Ocupación promedio", Value: occupancy, Unit: "%"},
		}
		return out, complete(snap)
	})
}

// SubDirector returns approval and coverage indicators with their trends.
func (s *DashboardService) SubDirector(ctx context.Context) (*dto.SubDirectorDashboard, bool, error) {
	return cachedDashboard(ctx, s, DashboardKey(models.DashboardSubDirector, ""), func() (*dto.SubDirectorDashboard, bool) {
		snap := s.snapshots.Load(ctx, models.CollectionReports, models.CollectionAlerts, models.CollectionGroups,
			models.CollectionCareers, models.CollectionSubjects)
		reports, alerts, groups := snap.Reports(), snap.Alerts(), snap.Groups()
		current, previous := reconcile.Periods(s.now().UTC(), s.cfg.TrendWindow)

		reportAt := func(r models.Report) *time.Time { return r.CreatedAt }
		alertAt := func(a models.Alert) *time.Time { return a.CreatedAt }
		approvalTrend := reconcile.TrendOf(
			reconcile.ApprovalRate(reconcile.InWindow(reports, current, reportAt)),
			reconcile.ApprovalRate(reconcile.InWindow(reports, previous, reportAt)),
		)
		alertsTrend := reconcile.TrendOf(
			float64(len(reconcile.InWindow(alerts, current, alertAt))),
			float64(len(reconcile.InWindow(alerts, previous, alertAt))),
		)

		careerViews := reconcile.ReconcileCareers(snap.Careers(), snap.Subjects(), groups)
		perCareer := make([]dto.CareerGroups, 0, len(careerViews))
		for _, c := range careerViews {
			perCareer = append(perCareer, dto.CareerGroups{CareerID: c.ID, CareerName: c.Name, Groups: c.GroupCount})
		}
		sort.SliceStable(perCareer, func(i, j int) bool { return perCareer[i].Groups > perCareer[j].Groups })

		covered := reconcile.CountWhere(groups, func(g models.Group) bool { return g.TeacherID != "" })
		out := &dto.SubDirectorDashboard{
			DashboardMeta:   s.meta(snap),
			ApprovalRate:    reconcile.ApprovalRate(reports),
			ApprovalTrend:   approvalTrend,
			AlertsTrend:     alertsTrend,
			GroupsPerCareer: perCareer,
			TeacherCoverage: reconcile.Percentage(covered, len(groups)),
		}
		out.Cards = []dto.StatCard{
			{Key: "approval_rate", Label: "Aprobación", Value: out.ApprovalRate, Unit: "%", Trend: approvalTrend},
			{Key: "alerts", Label: "Alertas", Value: float64(len(alerts)), Trend: alertsTrend},
			{Key: "teacher_coverage", Label: "Cobertura docente", Value: out.TeacherCoverage, Unit: "%"},
		}
		return out, complete(snap)
	})
}

// Teacher returns the dashboard scoped to the groups taught by teacherID.
func (s *DashboardService) Teacher(ctx context.Context, teacherID string) (*dto.TeacherDashboard, bool, error) {
	if teacherID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "teacherId is required")
	}
	return cachedDashboard(ctx, s, DashboardKey(models.DashboardTeacher, teacherID), func() (*dto.TeacherDashboard, bool) {
		snap := s.snapshots.Load(ctx, models.CollectionUsers, models.CollectionCareers, models.CollectionSubjects,
			models.CollectionGroups, models.CollectionReports, models.CollectionAlerts)
		users, careers, subjects := snap.Users(), snap.Careers(), snap.Subjects()

		own := reconcile.GroupsTaughtBy(snap.Groups(), teacherID)
		views := reconcile.ReconcileGroups(own, careers, subjects, users)
		reconcile.SortGroupViews(views)

		groupIDs := make(map[string]struct{}, len(own))
		subjectIDs := make(map[string]struct{})
		students := make(map[string]struct{})
		for _, g := range own {
			groupIDs[g.ID] = struct{}{}
			if g.SubjectID != "" {
				subjectIDs[g.SubjectID] = struct{}{}
			}
			for _, id := range g.StudentIDs {
				students[id] = struct{}{}
			}
		}
		for _, u := range users {
			if u.ID == teacherID {
				for _, id := range u.SubjectIDs {
					subjectIDs[id] = struct{}{}
				}
			}
		}
		ownSubjects := make([]models.Subject, 0, len(subjectIDs))
		for _, subj := range subjects {
			if _, ok := subjectIDs[subj.ID]; ok {
				ownSubjects = append(ownSubjects, subj)
			}
		}

		pending := reconcile.CountWhere(snap.Reports(), func(r models.Report) bool {
			_, mine := groupIDs[r.GroupID]
			return mine && r.Status == models.StatusPending
		})
		alerts := make([]models.Alert, 0)
		for _, a := range snap.Alerts() {
			if _, mine := students[a.StudentID]; mine && a.Status == models.StatusActive {
				alerts = append(alerts, a)
			}
		}
		sortAlerts(alerts)

		out := &dto.TeacherDashboard{
			DashboardMeta:  s.meta(snap),
			TeacherID:      teacherID,
			TeacherName:    reconcile.UserName(teacherID, users),
			Groups:         views,
			Subjects:       reconcile.ReconcileSubjects(ownSubjects, careers, own),
			TotalStudents:  len(students),
			PendingReports: pending,
			Alerts:         alerts,
		}
		out.Cards = []dto.StatCard{
			{Key: "groups", Label: "Mis grupos", Value: float64(len(own))},
			{Key: "students", Label: "Estudiantes", Value: float64(len(students))},
			{Key: "subjects", Label: "Materias", Value: float64(len(ownSubjects))},
			{Key: "pending_reports", Label: "Reportes pendientes", Value: float64(pending)},
		}
		return out, complete(snap)
	})
}

// Psychopedagogical returns the alert and tutoring follow-up dashboard.
func (s *DashboardService) Psychopedagogical(ctx context.Context) (*dto.PsychopedagogicalDashboard, bool, error) {
	return cachedDashboard(ctx, s, DashboardKey(models.DashboardPsychopedagogical, ""), func() (*dto.PsychopedagogicalDashboard, bool) {
		snap := s.snapshots.Load(ctx, models.CollectionAlerts, models.CollectionTutorias)
		alerts := snap.Alerts()
		current, previous := reconcile.Periods(s.now().UTC(), s.cfg.TrendWindow)
		alertAt := func(a models.Alert) *time.Time { return a.CreatedAt }
		trend := reconcile.TrendOf(
			float64(len(reconcile.InWindow(alerts, current, alertAt))),
			float64(len(reconcile.InWindow(alerts, previous, alertAt))),
		)

		critical := make([]models.Alert, 0)
		for _, a := range alerts {
			if a.Priority == models.PriorityCritical && a.Status == models.StatusActive {
				critical = append(critical, a)
			}
		}
		sortAlerts(critical)
		completion := reconcile.CompletionRate(snap.Tutorias(), func(t models.Tutoria) string { return t.Status })

		out := &dto.PsychopedagogicalDashboard{
			DashboardMeta:         s.meta(snap),
			AlertsByPriority:      reconcile.PriorityBreakdown(alerts),
			OpenCriticalAlerts:    critical,
			AlertsTrend:           trend,
			TutoriaCompletionRate: completion,
		}
		out.Cards = []dto.StatCard{
			{Key: "alerts", Label: "Alertas", Value: float64(len(alerts)), Trend: trend},
			{Key: "critical_alerts", Label: "Alertas críticas abiertas", Value: float64(len(critical))},
			{Key: "tutoria_completion", Label: "Tutorías completadas", Value: completion, Unit: "%"},
		}
		return out, complete(snap)
	})
}

// Tutor returns the dashboard scoped to the sessions of tutorID.
func (s *DashboardService) Tutor(ctx context.Context, tutorID string) (*dto.TutorDashboard, bool, error) {
	if tutorID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "tutorId is required")
	}
	return cachedDashboard(ctx, s, DashboardKey(models.DashboardTutor, tutorID), func() (*dto.TutorDashboard, bool) {
		snap := s.snapshots.Load(ctx, models.CollectionTutorias, models.CollectionCapacitaciones)
		now := s.now().UTC()

		own := make([]models.Tutoria, 0)
		for _, t := range snap.Tutorias() {
			if t.TutorID == tutorID || contains(t.ParticipantIDs, tutorID) {
				own = append(own, t)
			}
		}
		upcoming := make([]models.Tutoria, 0)
		for _, t := range own {
			if t.Status == models.StatusScheduled && t.Date != nil && t.Date.After(now) {
				upcoming = append(upcoming, t)
			}
		}
		sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Date.Before(*upcoming[j].Date) })

		trainings := make([]models.Capacitacion, 0)
		for _, c := range snap.Capacitaciones() {
			if contains(c.ParticipantIDs, tutorID) {
				trainings = append(trainings, c)
			}
		}
		pending := reconcile.CountWhere(trainings, func(c models.Capacitacion) bool { return c.Status == models.StatusScheduled })
		completion := reconcile.CompletionRate(own, func(t models.Tutoria) string { return t.Status })

		out := &dto.TutorDashboard{
			DashboardMeta:    s.meta(snap),
			TutorID:          tutorID,
			Tutorias:         own,
			Upcoming:         upcoming,
			CompletionRate:   completion,
			Capacitaciones:   trainings,
			TrainingsPending: pending,
		}
		out.Cards = []dto.StatCard{
			{Key: "tutorias", Label: "Tutorías", Value: float64(len(own))},
			{Key: "upcoming", Label: "Próximas sesiones", Value: float64(len(upcoming))},
			{Key: "completion", Label: "Completadas", Value: completion, Unit: "%"},
			{Key: "trainings_pending", Label: "Capacitaciones pendientes", Value: float64(pending)},
		}
		return out, complete(snap)
	})
}

// cachedDashboard serves key from cache or builds it. Only dashboards whose
// collections all loaded are cached.
func cachedDashboard[T any](ctx context.Context, s *DashboardService, key string, build func() (*T, bool)) (*T, bool, error) {
	if s.snapshots == nil {
		return nil, false, appErrors.Clone(appErrors.ErrInternal, "snapshot loader unavailable")
	}
	return Remember(ctx, s.cache, key, s.cfg.CacheTTL, func() (*T, bool, error) {
		out, cacheable := build()
		if err := ctx.Err(); err != nil {
			return nil, false, appErrors.CloneWrap(appErrors.ErrUpstreamUnavailable, err, "request cancelled")
		}
		return out, cacheable, nil
	})
}

func (s *DashboardService) meta(snap *snapshot.Snapshot) dto.DashboardMeta {
	return dto.DashboardMeta{
		Collections: snap.States(),
		Banners:     snap.Banners(),
		GeneratedAt: s.now().UTC(),
	}
}

func complete(snap *snapshot.Snapshot) bool {
	for _, st := range snap.States() {
		if st.Status != snapshot.StatusLoaded {
			return false
		}
	}
	return true
}

// sortAlerts orders alerts by descending priority, newest first within a priority.
func sortAlerts(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if ri, rj := alerts[i].Priority.Rank(), alerts[j].Priority.Rank(); ri != rj {
			return ri > rj
		}
		ti, tj := alerts[i].CreatedAt, alerts[j].CreatedAt
		if ti == nil || tj == nil {
			return ti != nil
		}
		return ti.After(*tj)
	})
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
