package models

// UserRole is the internal role tag used by the dashboard screens and RBAC.
type UserRole string

const (
	RoleDocente       UserRole = "docente"
	RoleEstudiante    UserRole = "estudiante"
	RoleJefeAcademico UserRole = "jefe_academico"
	RoleSubdirector   UserRole = "subdirector"
	RolePsicopedagogo UserRole = "psicopedagogo"
	RoleTutor         UserRole = "tutor"
	RoleSuperAdmin    UserRole = "superadmin"
)

// ExternalRole is the role tag spoken by the academic API.
type ExternalRole string

const (
	ExternalTeacher         ExternalRole = "teacher"
	ExternalStudent         ExternalRole = "student"
	ExternalAcademicHead    ExternalRole = "academic_head"
	ExternalSubDirector     ExternalRole = "sub_director"
	ExternalPsychopedagogue ExternalRole = "psychopedagogue"
	ExternalTutor           ExternalRole = "tutor"
	ExternalSuperAdmin      ExternalRole = "super_admin"
)

// DefaultRole is assigned only when a record carries no role at all.
const DefaultRole = RoleEstudiante

// StaffRoles lists every role with access to a dashboard screen.
var StaffRoles = []UserRole{
	RoleDocente, RoleJefeAcademico, RoleSubdirector, RolePsicopedagogo, RoleTutor, RoleSuperAdmin,
}

// Known reports whether r is one of the internal role tags.
func (r UserRole) Known() bool {
	switch r {
	case RoleDocente, RoleEstudiante, RoleJefeAcademico, RoleSubdirector, RolePsicopedagogo, RoleTutor, RoleSuperAdmin:
		return true
	}
	return false
}

// Dashboard screens, named by their route segment.
const (
	DashboardSuperAdmin        = "superadmin"
	DashboardAcademicHead      = "academic-head"
	DashboardSubDirector       = "sub-director"
	DashboardTeacher           = "teacher"
	DashboardPsychopedagogical = "psychopedagogical"
	DashboardTutor             = "tutor"
)

// dashboardOwners lists each screen with the role it is built for, in menu order.
var dashboardOwners = []struct {
	name string
	role UserRole
}{
	{DashboardSuperAdmin, RoleSuperAdmin},
	{DashboardAcademicHead, RoleJefeAcademico},
	{DashboardSubDirector, RoleSubdirector},
	{DashboardTeacher, RoleDocente},
	{DashboardPsychopedagogical, RolePsicopedagogo},
	{DashboardTutor, RoleTutor},
}

// DashboardOwner returns the role a dashboard screen is built for.
func DashboardOwner(name string) (UserRole, bool) {
	for _, d := range dashboardOwners {
		if d.name == name {
			return d.role, true
		}
	}
	return "", false
}

// Dashboards lists the screens r may open. The superadmin opens every screen.
func (r UserRole) Dashboards() []string {
	out := make([]string, 0, len(dashboardOwners))
	for _, d := range dashboardOwners {
		if r == RoleSuperAdmin || d.role == r {
			out = append(out, d.name)
		}
	}
	return out
}
