package snapshot

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/reconcile"
)

// Status is the load state of one collection within a snapshot.
type Status string

const (
	StatusPending  Status = "pending"
	StatusLoaded   Status = "loaded"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// CollectionState records how a collection was loaded.
type CollectionState struct {
	Collection models.Collection `json:"collection"`
	Status     Status            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Message    string            `json:"message,omitempty"`
	Records    int               `json:"records"`
	Dropped    int               `json:"dropped"`
	Cached     bool              `json:"cached"`
	LoadedAt   *time.Time        `json:"loadedAt,omitempty"`
}

// Snapshot holds the point-in-time collections a dashboard screen works on.
// Every write goes through apply, which holds the mutex.
type Snapshot struct {
	mu sync.RWMutex

	users          []models.User
	careers        []models.Career
	subjects       []models.Subject
	groups         []models.Group
	alerts         []models.Alert
	tutorias       []models.Tutoria
	capacitaciones []models.Capacitacion
	reports        []models.Report

	states map[models.Collection]*CollectionState
	issues []reconcile.Issue
}

// New returns a snapshot with every requested collection pending.
func New(collections ...models.Collection) *Snapshot {
	s := &Snapshot{states: make(map[models.Collection]*CollectionState, len(collections))}
	for _, c := range collections {
		s.states[c] = &CollectionState{Collection: c, Status: StatusPending}
	}
	return s
}

// Fetched is the outcome of loading one collection.
type Fetched struct {
	Records []models.RawRecord
	Cached  bool
	Err     error
}

// apply normalizes a fetched collection and stores it.
func (s *Snapshot) apply(c models.Collection, f Fetched, now time.Time, logger *zap.Logger) {
	state := CollectionState{Collection: c, LoadedAt: &now, Cached: f.Cached}
	if f.Err != nil {
		state.Error = f.Err.Error()
		if c.Optional() {
			state.Status = StatusDegraded
		} else {
			state.Status = StatusFailed
			state.Message = fmt.Sprintf("No se pudieron cargar los datos de %s. Intenta de nuevo más tarde.", c.Label())
		}
		s.mu.Lock()
		s.states[c] = &state
		s.mu.Unlock()
		return
	}

	var (
		issues []reconcile.Issue
		count  int
	)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch c {
	case models.CollectionUsers:
		s.users, issues = reconcile.NormalizeAll(c, f.Records, reconcile.NormalizeUser, logger)
		count = len(s.users)
	case models.CollectionCareers:
		s.careers, issues = reconcile.NormalizeAll(c, f.Records, reconcile.NormalizeCareer, logger)
		count = len(s.careers)
	case models.CollectionSubjects:
		s.subjects, issues = reconcile.NormalizeAll(c, f.Records, reconcile.NormalizeSubject, logger)
		count = len(s.subjects)
	case models.CollectionGroups:
		s.groups, issues = reconcile.NormalizeAll(c, f.Records, reconcile.NormalizeGroup, logger)
		count = len(s.groups)
	case models.CollectionAlerts:
		s.alerts, issues = reconcile.NormalizeAll(c, f.Records, reconcile.NormalizeAlert, logger)
		count = len(s.alerts)
	case models.CollectionTutorias:
		s.tutorias, issues = reconcile.NormalizeAll(c, f.Records, reconcile.NormalizeTutoria, logger)
		count = len(s.tutorias)
	case models.CollectionCapacitaciones:
		s.capacitaciones, issues = reconcile.NormalizeAll(c, f.Records, reconcile.NormalizeCapacitacion, logger)
		count = len(s.capacitaciones)
	case models.CollectionReports:
		s.reports, issues = reconcile.NormalizeAll(c, f.Records, reconcile.NormalizeReport, logger)
		count = len(s.reports)
	}
	state.Status = StatusLoaded
	state.Records = count
	state.Dropped = len(issues)
	s.states[c] = &state
	s.issues = append(s.issues, issues...)
}

// Users returns the normalized users. Like the other collection accessors it
// returns nil until the collection has loaded.
func (s *Snapshot) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users
}

func (s *Snapshot) Careers() []models.Career {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.careers
}

func (s *Snapshot) Subjects() []models.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subjects
}

func (s *Snapshot) Groups() []models.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups
}

func (s *Snapshot) Alerts() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alerts
}

func (s *Snapshot) Tutorias() []models.Tutoria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tutorias
}

func (s *Snapshot) Capacitaciones() []models.Capacitacion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacitaciones
}

func (s *Snapshot) Reports() []models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reports
}

// State returns the load state of c. Collections never requested report pending.
func (s *Snapshot) State(c models.Collection) CollectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[c]; ok {
		return *st
	}
	return CollectionState{Collection: c, Status: StatusPending}
}

// States returns every requested collection state in load order.
func (s *Snapshot) States() []CollectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CollectionState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return order(out[i].Collection) < order(out[j].Collection) })
	return out
}

// Loaded reports whether c finished loading successfully.
func (s *Snapshot) Loaded(c models.Collection) bool {
	return s.State(c).Status == StatusLoaded
}

// Banners returns the user-facing messages of failed required collections.
func (s *Snapshot) Banners() []string {
	var out []string
	for _, st := range s.States() {
		if st.Status == StatusFailed && st.Message != "" {
			out = append(out, st.Message)
		}
	}
	return out
}

// Issues returns the records dropped while normalizing.
func (s *Snapshot) Issues() []reconcile.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reconcile.Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// Dropped counts the records dropped across all collections.
func (s *Snapshot) Dropped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.issues)
}

func order(c models.Collection) int {
	for i, known := range models.AllCollections {
		if known == c {
			return i
		}
	}
	return len(models.AllCollections)
}
