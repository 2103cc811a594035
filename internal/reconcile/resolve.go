package reconcile

import "github.com/noah-isme/academic-dashboard-api/internal/models"

// ResolveForeignKey scans items for id and returns its display value. An empty
// id, an id absent from items or a blank display value yields sentinel.
func ResolveForeignKey[T models.Entity](id string, items []T, display func(T) string, sentinel string) string {
	if id == "" {
		return sentinel
	}
	for _, item := range items {
		if item.EntityID() != id {
			continue
		}
		if name := display(item); name != "" {
			return name
		}
		return sentinel
	}
	return sentinel
}

// CareerName resolves a career id to its name.
func CareerName(id string, careers []models.Career) string {
	return ResolveForeignKey(id, careers, func(c models.Career) string { return c.Name }, SentinelUnknown)
}

// SubjectName resolves a subject id to its name.
func SubjectName(id string, subjects []models.Subject) string {
	return ResolveForeignKey(id, subjects, func(s models.Subject) string { return s.Name }, SentinelUnknown)
}

// TeacherName resolves a user id to the full name of that user.
func TeacherName(id string, users []models.User) string {
	return ResolveForeignKey(id, users, func(u models.User) string { return u.FullName }, SentinelUnassigned)
}

// UserName resolves any user id, falling back to the unknown sentinel.
func UserName(id string, users []models.User) string {
	return ResolveForeignKey(id, users, func(u models.User) string { return u.FullName }, SentinelUnknown)
}
