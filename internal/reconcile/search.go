package reconcile

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

// FilterBySearch keeps the records where any field returned by fields contains
// term, ignoring case. A term that is blank after trimming returns records as is.
func FilterBySearch[T any](records []T, term string, fields func(T) []string) []T {
	term = strings.TrimSpace(term)
	if term == "" {
		return records
	}
	folder := cases.Fold()
	needle := folder.String(term)
	out := make([]T, 0, len(records))
	for _, record := range records {
		for _, field := range fields(record) {
			if field == "" {
				continue
			}
			if strings.Contains(folder.String(field), needle) {
				out = append(out, record)
				break
			}
		}
	}
	return out
}

// UserFields lists the searchable fields of a user.
func UserFields(u models.User) []string {
	return []string{u.FullName, u.Email, string(u.Role), u.Status}
}

// CareerFields lists the searchable fields of a career.
func CareerFields(c models.Career) []string {
	return []string{c.Name, c.Code, c.Description}
}

// SubjectFields lists the searchable fields of a subject.
func SubjectFields(s models.Subject) []string {
	return []string{s.Name, s.Code}
}

// GroupFields lists the searchable fields of a group.
func GroupFields(g models.Group) []string {
	return []string{g.Name, g.Code, g.Schedule}
}

// AlertFields lists the searchable fields of an alert.
func AlertFields(a models.Alert) []string {
	return []string{a.Title, a.Description, string(a.Priority), a.Status}
}

// TutoriaFields lists the searchable fields of a tutoring session.
func TutoriaFields(t models.Tutoria) []string {
	return []string{t.Title, t.Description, t.Status}
}

// CapacitacionFields lists the searchable fields of a training.
func CapacitacionFields(c models.Capacitacion) []string {
	return []string{c.Title, c.Description, c.Status}
}

// ReportFields lists the searchable fields of a report.
func ReportFields(r models.Report) []string {
	return []string{r.Title, r.Type, r.Status, r.Period}
}

// GroupViewFields lists the searchable fields of a reconciled group row.
func GroupViewFields(v GroupView) []string {
	return append(GroupFields(v.Group), v.CareerName, v.SubjectName, v.TeacherName)
}

// SubjectViewFields lists the searchable fields of a reconciled subject row.
func SubjectViewFields(v SubjectView) []string {
	return append(SubjectFields(v.Subject), v.CareerName)
}
