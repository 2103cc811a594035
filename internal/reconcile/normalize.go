package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

// ErrMissingIdentifier marks a record the academic API returned without id.
var ErrMissingIdentifier = errors.New("record has no identifier")

// Display sentinels returned when a reference cannot be resolved.
const (
	SentinelUnknown    = "Desconocida"
	SentinelUnassigned = "Sin asignar"
	SentinelNoName     = "Sin nombre"
)

// Defaults applied to optional fields.
const (
	DefaultCareerDuration       = 8
	DefaultSubjectCredits       = 4
	DefaultSubjectSemester      = 1
	DefaultGroupCapacity        = 30
	DefaultTutoriaDuration      = 60
	DefaultCapacitacionDuration = 120
	DefaultReportType           = "general"
)

// Issue describes a record dropped during normalization.
type Issue struct {
	Collection models.Collection `json:"collection"`
	Index      int               `json:"index"`
	Reason     string            `json:"reason"`
	Raw        models.RawRecord  `json:"raw,omitempty"`
}

// Normalize converts raw into the strict entity of the given collection.
func Normalize(raw models.RawRecord, kind models.Collection) (models.Entity, error) {
	switch kind {
	case models.CollectionUsers:
		return NormalizeUser(raw)
	case models.CollectionCareers:
		return NormalizeCareer(raw)
	case models.CollectionSubjects:
		return NormalizeSubject(raw)
	case models.CollectionGroups:
		return NormalizeGroup(raw)
	case models.CollectionAlerts:
		return NormalizeAlert(raw)
	case models.CollectionTutorias:
		return NormalizeTutoria(raw)
	case models.CollectionCapacitaciones:
		return NormalizeCapacitacion(raw)
	case models.CollectionReports:
		return NormalizeReport(raw)
	}
	return nil, fmt.Errorf("normalize: unknown collection %q", kind)
}

// NormalizeAll normalizes every record of a collection. Records that cannot be
// normalized are logged and reported as issues instead of failing the batch.
func NormalizeAll[T any](collection models.Collection, raws []models.RawRecord, fn func(models.RawRecord) (T, error), logger *zap.Logger) ([]T, []Issue) {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]T, 0, len(raws))
	var issues []Issue
	for i, raw := range raws {
		entity, err := fn(raw)
		if err != nil {
			logger.Warn("dropping upstream record",
				zap.String("collection", string(collection)),
				zap.Int("index", i),
				zap.Error(err),
			)
			issues = append(issues, Issue{Collection: collection, Index: i, Reason: err.Error(), Raw: raw})
			continue
		}
		out = append(out, entity)
	}
	return out, issues
}

// NormalizeUser fills every optional user field. The role is mapped through
// the role table and defaults to estudiante only when absent.
func NormalizeUser(raw models.RawRecord) (models.User, error) {
	id, ok := raw.ID()
	if !ok {
		return models.User{}, ErrMissingIdentifier
	}
	user := models.User{
		ID:         id,
		Email:      strings.TrimSpace(stringOr(raw, "", "email", "correo")),
		FirstName:  strings.TrimSpace(stringOr(raw, "", "firstName", "first_name", "nombre")),
		LastName:   strings.TrimSpace(stringOr(raw, "", "lastName", "last_name", "apellido")),
		Role:       models.DefaultRole,
		SubjectIDs: raw.Refs("subjects", "subjectIds", "materias"),
		GroupIDs:   raw.Refs("groups", "groupIds", "grupos"),
	}
	user.FullName = strings.TrimSpace(stringOr(raw, "", "fullName", "full_name"))
	if user.FullName == "" {
		user.FullName = strings.TrimSpace(user.FirstName + " " + user.LastName)
	}
	if user.FullName == "" {
		user.FullName = SentinelNoName
	}
	if role, ok := roleOf(raw); ok {
		user.Role = role
	}
	user.Status = statusOf(raw, models.StatusActive)
	user.Active = user.Status == models.StatusActive
	if inst, ok := raw.Ref("institutionId", "institution_id", "institution"); ok {
		user.InstitutionID = &inst
	}
	return user, nil
}

// NormalizeCareer fills every optional career field.
func NormalizeCareer(raw models.RawRecord) (models.Career, error) {
	id, ok := raw.ID()
	if !ok {
		return models.Career{}, ErrMissingIdentifier
	}
	return models.Career{
		ID:          id,
		Name:        stringOr(raw, "", "name", "nombre"),
		Code:        stringOr(raw, "", "code", "codigo"),
		Status:      statusOf(raw, models.StatusActive),
		Description: stringOr(raw, "", "description", "descripcion"),
		Duration:    positiveOr(raw, DefaultCareerDuration, "duration", "duracion"),
	}, nil
}

// NormalizeSubject fills every optional subject field.
func NormalizeSubject(raw models.RawRecord) (models.Subject, error) {
	id, ok := raw.ID()
	if !ok {
		return models.Subject{}, ErrMissingIdentifier
	}
	return models.Subject{
		ID:       id,
		Name:     stringOr(raw, "", "name", "nombre"),
		Code:     stringOr(raw, "", "code", "codigo"),
		CareerID: refOr(raw, "careerId", "career_id", "career", "carrera"),
		Status:   statusOf(raw, models.StatusActive),
		Credits:  positiveOr(raw, DefaultSubjectCredits, "credits", "creditos"),
		Semester: positiveOr(raw, DefaultSubjectSemester, "semester", "semestre"),
	}, nil
}

// NormalizeGroup fills every optional group field. A missing teacher leaves
// TeacherID empty, which resolves to the unassigned sentinel.
func NormalizeGroup(raw models.RawRecord) (models.Group, error) {
	id, ok := raw.ID()
	if !ok {
		return models.Group{}, ErrMissingIdentifier
	}
	return models.Group{
		ID:         id,
		Name:       stringOr(raw, "", "name", "nombre"),
		Code:       stringOr(raw, "", "code", "codigo"),
		CareerID:   refOr(raw, "careerId", "career_id", "career", "carrera"),
		SubjectID:  refOr(raw, "subjectId", "subject_id", "subject", "materia"),
		TeacherID:  refOr(raw, "teacherId", "teacher_id", "teacher", "docente"),
		StudentIDs: raw.Refs("students", "studentIds", "estudiantes"),
		Status:     statusOf(raw, models.StatusActive),
		Schedule:   stringOr(raw, "", "schedule", "horario"),
		Capacity:   positiveOr(raw, DefaultGroupCapacity, "capacity", "capacidad"),
	}, nil
}

// NormalizeAlert fills every optional alert field. Title falls back to message.
func NormalizeAlert(raw models.RawRecord) (models.Alert, error) {
	id, ok := raw.ID()
	if !ok {
		return models.Alert{}, ErrMissingIdentifier
	}
	alert := models.Alert{
		ID:          id,
		Title:       stringOr(raw, "", "title", "message", "titulo", "mensaje"),
		Description: stringOr(raw, "", "description", "descripcion"),
		Priority:    models.PriorityMedium,
		Status:      statusOf(raw, models.StatusActive),
		StudentID:   refOr(raw, "studentId", "student", "estudiante"),
	}
	if p, ok := raw.String("priority", "prioridad"); ok {
		if parsed, valid := models.ParsePriority(p); valid {
			alert.Priority = parsed
		}
	}
	if created, ok := raw.Time("createdAt", "created_at", "fecha"); ok {
		alert.CreatedAt = &created
	}
	return alert, nil
}

// NormalizeTutoria fills every optional tutoring session field.
func NormalizeTutoria(raw models.RawRecord) (models.Tutoria, error) {
	id, ok := raw.ID()
	if !ok {
		return models.Tutoria{}, ErrMissingIdentifier
	}
	tutoria := models.Tutoria{
		ID:             id,
		Title:          stringOr(raw, "", "title", "titulo", "topic", "tema"),
		Description:    stringOr(raw, "", "description", "descripcion"),
		Status:         statusOf(raw, models.StatusScheduled),
		TutorID:        refOr(raw, "tutorId", "tutor_id", "tutor"),
		StudentID:      refOr(raw, "studentId", "student_id", "student", "estudiante"),
		Duration:       positiveOr(raw, DefaultTutoriaDuration, "duration", "duracion"),
		ParticipantIDs: raw.Refs("participants", "participantIds", "participantes"),
	}
	if date, ok := raw.Time("date", "fecha", "scheduledAt"); ok {
		tutoria.Date = &date
	}
	return tutoria, nil
}

// NormalizeCapacitacion fills every optional training field.
func NormalizeCapacitacion(raw models.RawRecord) (models.Capacitacion, error) {
	id, ok := raw.ID()
	if !ok {
		return models.Capacitacion{}, ErrMissingIdentifier
	}
	training := models.Capacitacion{
		ID:             id,
		Title:          stringOr(raw, "", "title", "titulo", "name", "nombre"),
		Description:    stringOr(raw, "", "description", "descripcion"),
		Status:         statusOf(raw, models.StatusScheduled),
		Duration:       positiveOr(raw, DefaultCapacitacionDuration, "duration", "duracion"),
		ParticipantIDs: raw.Refs("participants", "participantIds", "participantes"),
	}
	if date, ok := raw.Time("date", "fecha", "startDate"); ok {
		training.Date = &date
	}
	return training, nil
}

// NormalizeReport fills every optional report field.
func NormalizeReport(raw models.RawRecord) (models.Report, error) {
	id, ok := raw.ID()
	if !ok {
		return models.Report{}, ErrMissingIdentifier
	}
	report := models.Report{
		ID:        id,
		Title:     stringOr(raw, "", "title", "titulo"),
		Type:      strings.ToLower(stringOr(raw, DefaultReportType, "type", "tipo")),
		Status:    statusOf(raw, models.StatusPending),
		GroupID:   refOr(raw, "groupId", "group_id", "group", "grupo"),
		StudentID: refOr(raw, "studentId", "student_id", "student", "estudiante"),
		Period:    stringOr(raw, "", "period", "periodo"),
	}
	if grade, ok := raw.Float("grade", "calificacion"); ok {
		report.Grade = &grade
	}
	if created, ok := raw.Time("createdAt", "created_at", "fecha"); ok {
		report.CreatedAt = &created
	}
	return report, nil
}

// statusOf reads an explicit status string, then an active flag, then fallback.
func statusOf(raw models.RawRecord, fallback string) string {
	if s, ok := raw.String("status", "estado"); ok {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			return s
		}
	}
	if active, ok := raw.Bool("active", "isActive", "activo"); ok {
		if active {
			return models.StatusActive
		}
		return models.StatusInactive
	}
	return fallback
}

// stringOr returns the first non-blank candidate, so an empty title still
// falls back to message.
func stringOr(raw models.RawRecord, fallback string, keys ...string) string {
	if s, ok := raw.Text(keys...); ok {
		return s
	}
	return fallback
}

// roleOf reads the role either as a tag or as an embedded role object.
func roleOf(raw models.RawRecord) (models.UserRole, bool) {
	if role, ok := raw.Text("role", "rol"); ok {
		return InternalRole(role), true
	}
	if nested, ok := raw.Record("role", "rol"); ok {
		if role, ok := nested.Text("name", "key", "code", "id", "_id"); ok {
			return InternalRole(role), true
		}
	}
	return "", false
}

func refOr(raw models.RawRecord, keys ...string) string {
	ref, _ := raw.Ref(keys...)
	return ref
}

func positiveOr(raw models.RawRecord, fallback int, keys ...string) int {
	if n, ok := raw.Int(keys...); ok && n > 0 {
		return n
	}
	return fallback
}
