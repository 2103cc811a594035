package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleDashboards(t *testing.T) {
	assert.Equal(t, []string{DashboardTeacher}, RoleDocente.Dashboards())
	assert.Len(t, RoleSuperAdmin.Dashboards(), 6)
	assert.Empty(t, RoleEstudiante.Dashboards())

	owner, ok := DashboardOwner(DashboardPsychopedagogical)
	assert.True(t, ok)
	assert.Equal(t, RolePsicopedagogo, owner)

	_, ok = DashboardOwner("grades")
	assert.False(t, ok)
	assert.False(t, UserRole("janitor").Known())
}
