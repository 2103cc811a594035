package reconcile

import (
	"strings"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

// Direction selects which side of the role table a tag is translated to.
type Direction int

const (
	// ToInternal translates an academic API tag into a dashboard tag.
	ToInternal Direction = iota
	// ToExternal translates a dashboard tag into an academic API tag.
	ToExternal
)

var roleTable = []struct {
	external models.ExternalRole
	internal models.UserRole
}{
	{models.ExternalTeacher, models.RoleDocente},
	{models.ExternalStudent, models.RoleEstudiante},
	{models.ExternalAcademicHead, models.RoleJefeAcademico},
	{models.ExternalSubDirector, models.RoleSubdirector},
	{models.ExternalPsychopedagogue, models.RolePsicopedagogo},
	{models.ExternalTutor, models.RoleTutor},
	{models.ExternalSuperAdmin, models.RoleSuperAdmin},
}

// MapRole translates role through the fixed role table. Matching ignores case
// and surrounding spaces; a tag missing from the table is returned unchanged.
func MapRole(role string, dir Direction) string {
	key := strings.ToLower(strings.TrimSpace(role))
	for _, entry := range roleTable {
		switch dir {
		case ToInternal:
			if key == string(entry.external) {
				return string(entry.internal)
			}
		case ToExternal:
			if key == string(entry.internal) {
				return string(entry.external)
			}
		}
	}
	return role
}

// InternalRole is MapRole(role, ToInternal) typed as a dashboard role.
func InternalRole(role string) models.UserRole {
	return models.UserRole(MapRole(role, ToInternal))
}

// ExternalRole is MapRole(role, ToExternal) typed as an academic API role.
func ExternalRole(role models.UserRole) models.ExternalRole {
	return models.ExternalRole(MapRole(string(role), ToExternal))
}
