package models

import "time"

// Status values shared by the academic entities.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusResolved  = "resolved"
)

// User is a normalized account of the institution.
type User struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	FullName      string   `json:"fullName"`
	Role          UserRole `json:"role"`
	Status        string   `json:"status"`
	Active        bool     `json:"active"`
	InstitutionID *string  `json:"institutionId,omitempty"`
	SubjectIDs    []string `json:"subjectIds"`
	GroupIDs      []string `json:"groupIds"`
}

// Career is an academic program.
type Career struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
}

// Subject belongs to a career.
type Subject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	CareerID string `json:"careerId"`
	Status   string `json:"status"`
	Credits  int    `json:"credits"`
	Semester int    `json:"semester"`
}

// Group is a course section of a subject. An empty TeacherID means unassigned.
type Group struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Code       string   `json:"code"`
	CareerID   string   `json:"careerId"`
	SubjectID  string   `json:"subjectId"`
	TeacherID  string   `json:"teacherId"`
	StudentIDs []string `json:"studentIds"`
	Status     string   `json:"status"`
	Schedule   string   `json:"schedule"`
	Capacity   int      `json:"capacity"`
}

// Alert is a psycho-pedagogical or academic warning.
type Alert struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      string     `json:"status"`
	StudentID   string     `json:"studentId,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// Tutoria is a tutoring session.
type Tutoria struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	TutorID        string     `json:"tutorId"`
	StudentID      string     `json:"studentId"`
	Date           *time.Time `json:"date,omitempty"`
	Duration       int        `json:"duration"`
	ParticipantIDs []string   `json:"participantIds"`
}

// Capacitacion is a training offered to staff.
type Capacitacion struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Date           *time.Time `json:"date,omitempty"`
	Duration       int        `json:"duration"`
	ParticipantIDs []string   `json:"participantIds"`
}

// Report is an academic report filed for a student or group.
type Report struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	GroupID   string     `json:"groupId"`
	StudentID string     `json:"studentId"`
	Grade     *float64   `json:"grade,omitempty"`
	Period    string     `json:"period"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Entity is implemented by every normalized record.
type Entity interface {
	EntityID() string
}

func (u User) EntityID() string         { return u.ID }
func (c Career) EntityID() string       { return c.ID }
func (s Subject) EntityID() string      { return s.ID }
func (g Group) EntityID() string        { return g.ID }
func (a Alert) EntityID() string        { return a.ID }
func (t Tutoria) EntityID() string      { return t.ID }
func (c Capacitacion) EntityID() string { return c.ID }
func (r Report) EntityID() string       { return r.ID }
